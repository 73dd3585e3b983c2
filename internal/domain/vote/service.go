package vote

import (
	"context"
	"errors"

	"polls-service/internal/domain/poll"
)

var (
	ErrAlreadyVoted    = errors.New("user already voted in this poll")
	ErrOptionNotInPoll = errors.New("option does not belong to poll")
	ErrInvalidVote     = errors.New("poll id and option id are required")
	ErrPollNotFound    = poll.ErrPollNotFound
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Vote records userID's single vote in pollID for optionID. A repeated call
// for the same poll and user fails with ErrAlreadyVoted.
func (s *Service) Vote(ctx context.Context, pollID, optionID, userID int64) (*Vote, error) {
	if pollID <= 0 || optionID <= 0 {
		return nil, ErrInvalidVote
	}

	v := &Vote{
		PollID:   pollID,
		OptionID: optionID,
		UserID:   userID,
	}
	if err := s.repo.Record(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) HasVoted(ctx context.Context, pollID, userID int64) (bool, error) {
	return s.repo.HasUserVoted(ctx, pollID, userID)
}

type Result struct {
	OptionID   int64   `json:"option_id"`
	Text       string  `json:"option_text"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

func (s *Service) Results(ctx context.Context, pollID int64) ([]Result, int64, error) {
	counts, err := s.repo.Tally(ctx, pollID)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	for _, c := range counts {
		total += c.Votes
	}

	results := make([]Result, 0, len(counts))
	for _, c := range counts {
		var p float64
		if total > 0 {
			p = float64(c.Votes) * 100.0 / float64(total)
		}
		results = append(results, Result{
			OptionID:   c.OptionID,
			Text:       c.Text,
			Votes:      c.Votes,
			Percentage: p,
		})
	}

	return results, total, nil
}
