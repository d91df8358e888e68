package lock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LockTestSuite struct {
	suite.Suite
}

func TestLockSuite(t *testing.T) {
	suite.Run(t, new(LockTestSuite))
}

func (suite *LockTestSuite) TestSecondRunFailsFast() {
	path := filepath.Join(suite.T().TempDir(), "random_forest", "next_day", ".run.lock")

	first, err := Acquire(path)
	suite.Require().NoError(err)
	suite.Equal(path, first.Path())

	_, err = Acquire(path)
	suite.True(errors.HasCode(err, errors.ErrCodeRunLocked))

	suite.Require().NoError(first.Release())

	again, err := Acquire(path)
	suite.Require().NoError(err)
	suite.NoError(again.Release())
}

func (suite *LockTestSuite) TestHorizonsLockIndependently() {
	dir := suite.T().TempDir()

	a, err := Acquire(filepath.Join(dir, "next_day", ".run.lock"))
	suite.Require().NoError(err)
	defer a.Release()

	b, err := Acquire(filepath.Join(dir, "weekly", ".run.lock"))
	suite.Require().NoError(err)
	suite.NoError(b.Release())
}

func (suite *LockTestSuite) TestAcquireContextWaitsForRelease() {
	path := filepath.Join(suite.T().TempDir(), "processed", ".data.lock")

	first, err := Acquire(path)
	suite.Require().NoError(err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = first.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	second, err := AcquireContext(ctx, path, 10*time.Millisecond)
	suite.Require().NoError(err)
	suite.NoError(second.Release())
}

func (suite *LockTestSuite) TestAcquireContextGivesUp() {
	path := filepath.Join(suite.T().TempDir(), "processed", ".data.lock")

	held, err := Acquire(path)
	suite.Require().NoError(err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = AcquireContext(ctx, path, 5*time.Millisecond)
	suite.True(errors.HasCode(err, errors.ErrCodeRunLocked))
}
