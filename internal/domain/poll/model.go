package poll

import (
	"context"
	"time"
)

type Poll struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Option struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	Text      string    `json:"option_text"`
	VoteCount int64     `json:"vote_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists polls together with their options. Create and Delete
// must be atomic: either every row is written/removed or none is.
type Repository interface {
	Create(ctx context.Context, p *Poll, options []Option) error
	GetByID(ctx context.Context, id int64) (*Poll, []Option, error)
	List(ctx context.Context) ([]Poll, error)
	Delete(ctx context.Context, id, authorID int64) error
}
