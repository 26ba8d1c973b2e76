package service

import (
	"fmt"
	"math/rand/v2"

	"github.com/vilaca/conflict-marker/internal/domain"
)

const (
	// DefaultMemeBaseURL hosts the images appended to conflict comments.
	DefaultMemeBaseURL = "https://github.com/picollomartin/conflict-alarm/blob/master/src/images"

	conflictMemesCount = 7
)

// CommentComposer renders the comment posted on newly conflicting pull requests.
type CommentComposer struct {
	memes       bool
	memeBaseURL string
	intN        func(n int) int
}

// NewCommentComposer creates a composer. With memes enabled a random image
// link is appended to every comment.
func NewCommentComposer(memes bool, memeBaseURL string) *CommentComposer {
	if memeBaseURL == "" {
		memeBaseURL = DefaultMemeBaseURL
	}
	return &CommentComposer{
		memes:       memes,
		memeBaseURL: memeBaseURL,
		intN:        rand.IntN,
	}
}

// ConflictComment returns the comment addressed to the pull request's author.
func (c *CommentComposer) ConflictComment(pr domain.PullRequest) string {
	body := fmt.Sprintf(":boom: Seems like your PR have some merge conflicts @%s :boom:", pr.Author)
	if !c.memes {
		return body
	}
	return body + " \n " + c.memeLink()
}

func (c *CommentComposer) memeLink() string {
	n := c.intN(conflictMemesCount) + 1
	return fmt.Sprintf("![Meme](%s/conflicts/meme_%d.jpg?raw=true)", c.memeBaseURL, n)
}
