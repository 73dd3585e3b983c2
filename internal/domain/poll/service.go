package poll

import (
	"context"
	"errors"
	"strings"
)

const MinOptions = 2

var (
	ErrQuestionRequired = errors.New("question required")
	ErrTooFewOptions    = errors.New("poll must have at least 2 options")
	ErrEmptyOption      = errors.New("option text required")
	ErrPollNotFound     = errors.New("poll not found")
	ErrNotOwner         = errors.New("not authorized to delete this poll")
)

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrQuestionRequired) ||
		errors.Is(err, ErrTooFewOptions) ||
		errors.Is(err, ErrEmptyOption)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new poll owned by authorID with one option per text, all
// options starting at zero votes.
func (s *Service) Create(ctx context.Context, question string, optionTexts []string, authorID int64) (*Poll, []Option, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil, ErrQuestionRequired
	}
	if len(optionTexts) < MinOptions {
		return nil, nil, ErrTooFewOptions
	}

	opts := make([]Option, 0, len(optionTexts))
	for _, text := range optionTexts {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil, ErrEmptyOption
		}
		opts = append(opts, Option{Text: text})
	}

	p := &Poll{Question: question, AuthorID: authorID}
	if err := s.repo.Create(ctx, p, opts); err != nil {
		return nil, nil, err
	}
	return p, opts, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Poll, []Option, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Poll, error) {
	return s.repo.List(ctx)
}

// Delete removes the poll with its options and votes. Only the author may
// delete; a missing poll is reported before ownership is checked.
func (s *Service) Delete(ctx context.Context, id, authorID int64) error {
	return s.repo.Delete(ctx, id, authorID)
}
