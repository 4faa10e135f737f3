// Package seed fills a feed with demo content. It is intended for
// development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"statusfeed/internal/feed"
	"statusfeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Options controls how much demo content is generated.
type Options struct {
	Posts       int
	MaxComments int
	MaxShares   int
	// Seed makes the output reproducible. Zero uses the current time.
	Seed int64
}

// Seeder writes generated posts into a feed store through its normal
// operations, so seeded data obeys the same invariants as user input.
type Seeder struct {
	store *feed.Store
	opts  Options
	faker *gofakeit.Faker
}

// NewSeeder creates a Seeder bound to store.
func NewSeeder(store *feed.Store, opts Options) *Seeder {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxComments < 0 {
		opts.MaxComments = 0
	}
	if opts.MaxShares < 0 {
		opts.MaxShares = 0
	}
	return &Seeder{store: store, opts: opts, faker: gofakeit.New(seed)}
}

// BuildAuthor returns a random author snapshot.
func (s *Seeder) BuildAuthor() models.Author {
	first := s.faker.FirstName()
	last := s.faker.LastName()
	return models.Author{
		Name:      first + " " + last,
		Username:  s.faker.Username() + fmt.Sprintf("%d", s.faker.Number(100, 999)),
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
	}
}

// Run adds opts.Posts posts with random comments and shares and returns the
// resulting snapshot.
func (s *Seeder) Run(ctx context.Context) (feed.Snapshot, error) {
	authors := make([]models.Author, 0, 8)
	for i := 0; i < 8; i++ {
		authors = append(authors, s.BuildAuthor())
	}

	for i := 0; i < s.opts.Posts; i++ {
		if err := ctx.Err(); err != nil {
			return s.store.Snapshot(), err
		}
		author := authors[s.faker.Number(0, len(authors)-1)]
		post, _, err := s.store.AddPost(ctx, s.faker.Sentence(s.faker.Number(4, 14)), author)
		if err != nil {
			return s.store.Snapshot(), fmt.Errorf("seed post %d: %w", i, err)
		}

		for c := s.count(s.opts.MaxComments); c > 0; c-- {
			commenter := authors[s.faker.Number(0, len(authors)-1)]
			if _, err := s.store.AddComment(ctx, post.ID, s.faker.Sentence(s.faker.Number(2, 8)), commenter.Username); err != nil {
				return s.store.Snapshot(), fmt.Errorf("seed comment on %s: %w", post.ID, err)
			}
		}
		for n := s.count(s.opts.MaxShares); n > 0; n-- {
			if _, err := s.store.AddShare(ctx, post.ID); err != nil {
				return s.store.Snapshot(), fmt.Errorf("seed share on %s: %w", post.ID, err)
			}
		}
	}

	snap := s.store.Snapshot()
	log.Printf("Seeded %d demo posts (feed now has %d)", s.opts.Posts, snap.Len())
	return snap, nil
}

func (s *Seeder) count(limit int) int {
	if limit <= 0 {
		return 0
	}
	return s.faker.Number(0, limit)
}
