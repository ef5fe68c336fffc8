// Package seed loads fixture threads and generated demo data into a store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"teamsemu/internal/store"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yml
var sampleFixtures []byte

// Fixtures is a list of threads to create, in order.
type Fixtures struct {
	Posts []PostFixture `yaml:"posts"`
}

// PostFixture describes one post and its replies.
type PostFixture struct {
	Title   string         `yaml:"title"`
	User    string         `yaml:"user"`
	Role    string         `yaml:"role"`
	Message string         `yaml:"message"`
	Replies []ReplyFixture `yaml:"replies"`
}

// ReplyFixture describes one reply.
type ReplyFixture struct {
	User    string `yaml:"user"`
	Role    string `yaml:"role"`
	Message string `yaml:"message"`
}

// Parse decodes fixtures from YAML.
func Parse(data []byte) (Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return Fixtures{}, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return fx, nil
}

// Sample returns the built-in release thread.
func Sample() Fixtures {
	fx, err := Parse(sampleFixtures)
	if err != nil {
		panic(err)
	}
	return fx
}

// Result counts what Apply created.
type Result struct {
	Posts   int
	Replies int
}

// Apply creates every fixture thread in s. Posts are created in file order,
// each followed by its replies.
func Apply(ctx context.Context, s store.Store, fx Fixtures) (Result, error) {
	var res Result
	for _, pf := range fx.Posts {
		in := store.NewPost{User: pf.User, Role: pf.Role, Message: pf.Message}
		if title := strings.TrimSpace(pf.Title); title != "" {
			in.Title = &title
		}
		post, err := s.CreatePost(ctx, in)
		if err != nil {
			return res, fmt.Errorf("failed to seed post by %s: %w", pf.User, err)
		}
		res.Posts++

		for _, rf := range pf.Replies {
			_, err := s.CreateReply(ctx, post.ID, store.NewReply{User: rf.User, Role: rf.Role, Message: rf.Message})
			if err != nil {
				return res, fmt.Errorf("failed to seed reply by %s: %w", rf.User, err)
			}
			res.Replies++
		}
	}
	return res, nil
}

// SeedIfEmpty applies the sample thread when the store holds no posts yet, so
// restarting a persistent backend does not duplicate it.
func SeedIfEmpty(ctx context.Context, s store.Store) (Result, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(posts) > 0 {
		return Result{}, nil
	}
	return Apply(ctx, s, Sample())
}

var roles = []string{"Program Manager", "SCRUM Master", "Release Engineer", "QA Lead", "Developer"}

// Demo generates n fake release threads with up to maxReplies replies each.
// The same seed yields the same content.
func Demo(n, maxReplies int, seed int64) Fixtures {
	faker := gofakeit.New(seed)
	fx := Fixtures{Posts: make([]PostFixture, 0, n)}
	for i := 0; i < n; i++ {
		version := fmt.Sprintf("M%d.%d.0", faker.Number(100, 299), faker.Number(0, 9))
		pf := PostFixture{
			Title:   fmt.Sprintf("%s %s Release", version, faker.AppName()),
			User:    shortName(faker),
			Role:    faker.RandomString(roles),
			Message: faker.Sentence(faker.Number(8, 20)),
		}
		replies := 0
		if maxReplies > 0 {
			replies = faker.Number(0, maxReplies)
		}
		for j := 0; j < replies; j++ {
			pf.Replies = append(pf.Replies, ReplyFixture{
				User:    shortName(faker),
				Role:    faker.RandomString(roles),
				Message: faker.Sentence(faker.Number(4, 12)),
			})
		}
		fx.Posts = append(fx.Posts, pf)
	}
	return fx
}

// shortName renders "First L." like the sample thread authors.
func shortName(faker *gofakeit.Faker) string {
	last := faker.LastName()
	return fmt.Sprintf("%s %s.", faker.FirstName(), last[:1])
}
