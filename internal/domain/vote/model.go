package vote

import (
	"context"
	"time"
)

type Vote struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	OptionID  int64     `json:"option_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// OptionCount is the stored vote_count of one option.
type OptionCount struct {
	OptionID int64
	Text     string
	Votes    int64
}

// Repository records votes. Record must insert the vote and increment the
// option's counter in one transaction, and must report a second vote by the
// same user in the same poll as ErrAlreadyVoted even when both race.
type Repository interface {
	Record(ctx context.Context, v *Vote) error
	HasUserVoted(ctx context.Context, pollID, userID int64) (bool, error)
	Tally(ctx context.Context, pollID int64) ([]OptionCount, error)
}
