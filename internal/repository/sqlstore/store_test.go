package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"polls-service/internal/domain/poll"
	"polls-service/internal/domain/user"
	"polls-service/internal/domain/vote"
	"polls-service/internal/platform/database"
)

// storeSuite runs the repository contract against one driver; openDB is
// swapped by the Postgres integration suite.
type storeSuite struct {
	suite.Suite
	driver  database.Driver
	openDB  func(t *testing.T) *sql.DB
	db      *sql.DB
	store   *Store
	pollSvc *poll.Service
	voteSvc *vote.Service
	ctx     context.Context
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &storeSuite{
		driver: database.DriverSQLite,
		openDB: openSQLite,
	})
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		DSN:    database.SQLiteDSN(filepath.Join(t.TempDir(), "polls.db")),
	})
	require.NoError(t, err)
	return db
}

func (s *storeSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = s.openDB(s.T())
	s.Require().NoError(database.CreateSchema(s.ctx, s.db, s.driver))
	s.store = New(s.db, s.driver, nil)
	s.pollSvc = poll.NewService(s.store.Polls)
	s.voteSvc = vote.NewService(s.store.Votes)
}

func (s *storeSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *storeSuite) createPoll(question string, author int64, options ...string) (*poll.Poll, []poll.Option) {
	p, opts, err := s.pollSvc.Create(s.ctx, question, options, author)
	s.Require().NoError(err)
	return p, opts
}

func (s *storeSuite) count(query string, args ...any) int {
	var n int
	s.Require().NoError(s.db.QueryRowContext(s.ctx, query, args...).Scan(&n))
	return n
}

func (s *storeSuite) voteCounts(pollID int64) map[int64]int64 {
	_, opts, err := s.pollSvc.Get(s.ctx, pollID)
	s.Require().NoError(err)
	res := make(map[int64]int64, len(opts))
	for _, o := range opts {
		res[o.ID] = o.VoteCount
	}
	return res
}

func (s *storeSuite) TestCreateThenGet() {
	p, opts := s.createPoll("Best color?", 1, "Red", "Blue", "Green")
	s.Require().NotZero(p.ID)
	s.Require().Len(opts, 3)

	got, gotOpts, err := s.pollSvc.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal("Best color?", got.Question)
	s.Equal(int64(1), got.AuthorID)
	s.True(p.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", p.CreatedAt, got.CreatedAt)

	s.Require().Len(gotOpts, 3)
	for i, o := range gotOpts {
		s.Equal(opts[i].ID, o.ID)
		s.Equal(opts[i].Text, o.Text)
		s.Equal(p.ID, o.PollID)
		s.Zero(o.VoteCount)
	}
	s.Less(gotOpts[0].ID, gotOpts[1].ID)
	s.Less(gotOpts[1].ID, gotOpts[2].ID)
}

func (s *storeSuite) TestCreateRejectsTooFewOptions() {
	_, _, err := s.pollSvc.Create(s.ctx, "Lonely?", []string{"only"}, 1)
	s.Require().ErrorIs(err, poll.ErrTooFewOptions)
	s.Zero(s.count(`SELECT COUNT(*) FROM polls`))
	s.Zero(s.count(`SELECT COUNT(*) FROM poll_options`))
}

func (s *storeSuite) TestCreateIsAtomic() {
	// the poll insert succeeds, the first option insert fails
	_, err := s.db.ExecContext(s.ctx, `ALTER TABLE poll_options RENAME TO poll_options_off`)
	s.Require().NoError(err)

	p := &poll.Poll{Question: "Q?", AuthorID: 1}
	opts := []poll.Option{{Text: "A"}, {Text: "B"}}
	err = s.store.Polls.Create(s.ctx, p, opts)
	var se *database.StorageError
	s.Require().ErrorAs(err, &se)
	s.Zero(p.ID)

	_, err = s.db.ExecContext(s.ctx, `ALTER TABLE poll_options_off RENAME TO poll_options`)
	s.Require().NoError(err)

	s.Zero(s.count(`SELECT COUNT(*) FROM polls`))
	s.Zero(s.count(`SELECT COUNT(*) FROM poll_options`))
}

func (s *storeSuite) TestGetMissingPoll() {
	_, _, err := s.pollSvc.Get(s.ctx, 12345)
	s.Require().ErrorIs(err, poll.ErrPollNotFound)
}

func (s *storeSuite) TestListNewestFirst() {
	empty, err := s.pollSvc.List(s.ctx)
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)

	first, _ := s.createPoll("first", 1, "a", "b")
	second, _ := s.createPoll("second", 2, "a", "b")
	third, _ := s.createPoll("third", 1, "a", "b")

	polls, err := s.pollSvc.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(polls, 3)
	s.Equal([]int64{third.ID, second.ID, first.ID}, []int64{polls[0].ID, polls[1].ID, polls[2].ID})
}

func (s *storeSuite) TestEndToEndVoting() {
	p, opts := s.createPoll("Best color?", 1, "Red", "Blue", "Green")
	red, blue, green := opts[0], opts[1], opts[2]

	v, err := s.voteSvc.Vote(s.ctx, p.ID, blue.ID, 2)
	s.Require().NoError(err)
	s.NotZero(v.ID)

	counts := s.voteCounts(p.ID)
	s.Equal(int64(1), counts[blue.ID])
	s.Zero(counts[red.ID])
	s.Zero(counts[green.ID])

	_, err = s.voteSvc.Vote(s.ctx, p.ID, red.ID, 2)
	s.Require().ErrorIs(err, vote.ErrAlreadyVoted)
	s.Equal(counts, s.voteCounts(p.ID))
	s.Equal(1, s.count(`SELECT COUNT(*) FROM poll_votes WHERE poll_id = $1`, p.ID))

	voted, err := s.voteSvc.HasVoted(s.ctx, p.ID, 2)
	s.Require().NoError(err)
	s.True(voted)
	voted, err = s.voteSvc.HasVoted(s.ctx, p.ID, 3)
	s.Require().NoError(err)
	s.False(voted)

	results, total, err := s.voteSvc.Results(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(results, 3)
	s.Equal(float64(100), results[1].Percentage)
	s.Equal("Blue", results[1].Text)
}

func (s *storeSuite) TestVoteMissingPoll() {
	_, err := s.voteSvc.Vote(s.ctx, 999, 1, 2)
	s.Require().ErrorIs(err, vote.ErrPollNotFound)
	s.Zero(s.count(`SELECT COUNT(*) FROM poll_votes`))
}

func (s *storeSuite) TestVoteOptionFromOtherPoll() {
	pollA, optsA := s.createPoll("A?", 1, "A1", "A2")
	_, optsB := s.createPoll("B?", 1, "B1", "B2")

	_, err := s.voteSvc.Vote(s.ctx, pollA.ID, optsB[0].ID, 5)
	s.Require().ErrorIs(err, vote.ErrOptionNotInPoll)

	s.Zero(s.count(`SELECT COUNT(*) FROM poll_votes`))
	s.Zero(s.count(`SELECT COALESCE(SUM(vote_count), 0) FROM poll_options`))

	// the failed attempt must not block a valid vote afterwards
	_, err = s.voteSvc.Vote(s.ctx, pollA.ID, optsA[0].ID, 5)
	s.Require().NoError(err)
}

func (s *storeSuite) TestConcurrentSameUserVotesOnce() {
	p, opts := s.createPoll("Race?", 1, "o1", "o2")

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.voteSvc.Vote(s.ctx, p.ID, opts[i%2].ID, 42)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, vote.ErrAlreadyVoted):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	s.Require().Empty(others)
	s.Equal(1, successes)
	s.Equal(attempts-1, conflicts)

	var sum int64
	for _, c := range s.voteCounts(p.ID) {
		sum += c
	}
	s.Equal(int64(1), sum)
	s.Equal(1, s.count(`SELECT COUNT(*) FROM poll_votes WHERE poll_id = $1 AND user_id = $2`, p.ID, 42))
}

func (s *storeSuite) TestConcurrentDistinctUsersNoLostUpdate() {
	p, opts := s.createPoll("Crowd?", 1, "o1", "o2")

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for u := int64(1); u <= voters; u++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			if _, err := s.voteSvc.Vote(s.ctx, p.ID, opts[0].ID, userID); err != nil {
				errs <- err
			}
		}(u)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	counts := s.voteCounts(p.ID)
	s.Equal(int64(voters), counts[opts[0].ID])
	s.Zero(counts[opts[1].ID])
}

func (s *storeSuite) TestDeleteByNonAuthorForbidden() {
	p, opts := s.createPoll("Mine?", 1, "yes", "no")
	_, err := s.voteSvc.Vote(s.ctx, p.ID, opts[0].ID, 3)
	s.Require().NoError(err)

	err = s.pollSvc.Delete(s.ctx, p.ID, 2)
	s.Require().ErrorIs(err, poll.ErrNotOwner)

	_, gotOpts, err := s.pollSvc.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Len(gotOpts, 2)
	s.Equal(int64(1), gotOpts[0].VoteCount)
	s.Equal(1, s.count(`SELECT COUNT(*) FROM poll_votes WHERE poll_id = $1`, p.ID))
}

func (s *storeSuite) TestDeleteByAuthorCascades() {
	p, opts := s.createPoll("Gone?", 1, "yes", "no")
	other, _ := s.createPoll("Stays?", 1, "a", "b")
	for u := int64(10); u < 13; u++ {
		_, err := s.voteSvc.Vote(s.ctx, p.ID, opts[u%2].ID, u)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.pollSvc.Delete(s.ctx, p.ID, 1))

	_, _, err := s.pollSvc.Get(s.ctx, p.ID)
	s.Require().ErrorIs(err, poll.ErrPollNotFound)
	s.Zero(s.count(`SELECT COUNT(*) FROM poll_options WHERE poll_id = $1`, p.ID))
	s.Zero(s.count(`SELECT COUNT(*) FROM poll_votes WHERE poll_id = $1`, p.ID))

	_, _, err = s.pollSvc.Get(s.ctx, other.ID)
	s.Require().NoError(err)

	err = s.pollSvc.Delete(s.ctx, p.ID, 1)
	s.Require().ErrorIs(err, poll.ErrPollNotFound)
}

func (s *storeSuite) TestReadsRacingDeleteSeeWholePollOrNothing() {
	const (
		rounds  = 40
		readers = 6
	)
	for round := 0; round < rounds; round++ {
		p, opts := s.createPoll("Snapshot?", 1, "a", "b", "c")

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			broken []string
			others []error
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.pollSvc.Delete(s.ctx, p.ID, 1); err != nil {
				mu.Lock()
				others = append(others, err)
				mu.Unlock()
			}
		}()
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, got, err := s.pollSvc.Get(s.ctx, p.ID)
				counts, _, tallyErr := s.voteSvc.Results(s.ctx, p.ID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil && len(got) != len(opts):
					broken = append(broken, "get")
				case err != nil && !errors.Is(err, poll.ErrPollNotFound):
					others = append(others, err)
				}
				switch {
				case tallyErr == nil && len(counts) != len(opts):
					broken = append(broken, "results")
				case tallyErr != nil && !errors.Is(tallyErr, vote.ErrPollNotFound):
					others = append(others, tallyErr)
				}
			}()
		}
		wg.Wait()

		s.Require().Empty(others, "round %d", round)
		s.Require().Empty(broken, "round %d: poll observed without its options", round)
	}
}

func (s *storeSuite) TestDeleteMissingReportsNotFoundBeforeForbidden() {
	err := s.pollSvc.Delete(s.ctx, 4242, 99)
	s.Require().ErrorIs(err, poll.ErrPollNotFound)
}

func (s *storeSuite) TestTallyMissingPoll() {
	_, _, err := s.voteSvc.Results(s.ctx, 777)
	s.Require().ErrorIs(err, vote.ErrPollNotFound)
}

func (s *storeSuite) TestUsers() {
	svc := user.NewService(s.store.Users).WithCost(4)

	u, err := svc.Register(s.ctx, "a@example.com", "pw")
	s.Require().NoError(err)
	s.NotZero(u.ID)

	_, err = svc.Register(s.ctx, "a@example.com", "pw")
	s.Require().ErrorIs(err, user.ErrEmailTaken)

	// a racing insert past the pre-check still maps to ErrEmailTaken
	err = s.store.Users.Create(s.ctx, &user.User{Email: "a@example.com", PasswordHash: "x", Role: user.RoleUser})
	s.Require().ErrorIs(err, user.ErrEmailTaken)

	_, err = svc.Login(s.ctx, "a@example.com", "pw")
	s.Require().NoError(err)

	s.Require().NoError(svc.UpdateRole(s.ctx, u.ID, user.RoleAdmin))
	got, err := svc.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(user.RoleAdmin, got.Role)

	s.Require().ErrorIs(svc.UpdateRole(s.ctx, 999, user.RoleAdmin), user.ErrUserNotFound)

	list, err := svc.List(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *storeSuite) TestStorageErrorOnClosedDB() {
	s.Require().NoError(s.db.Close())

	_, err := s.voteSvc.Vote(s.ctx, 1, 1, 1)
	var se *database.StorageError
	s.Require().ErrorAs(err, &se)

	_, err = s.pollSvc.List(s.ctx)
	s.Require().ErrorAs(err, &se)

	// reopen so TearDownTest has something to close
	s.db = s.openDB(s.T())
}
