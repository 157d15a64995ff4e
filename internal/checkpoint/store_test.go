package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

type FileStoreTestSuite struct {
	suite.Suite
	dir   string
	store *FileStore
}

func TestFileStoreTestSuite(t *testing.T) {
	suite.Run(t, new(FileStoreTestSuite))
}

func (s *FileStoreTestSuite) SetupTest() {
	s.dir = s.T().TempDir()

	store, err := NewFileStore(s.dir)
	s.Require().NoError(err)
	s.store = store
}

func (s *FileStoreTestSuite) pair() types.PairKey {
	return types.NewPairKey("NIFTY", "sma_crossover")
}

func (s *FileStoreTestSuite) checkpoint(cursor time.Time) types.Checkpoint {
	return types.Checkpoint{
		Symbol:     "NIFTY",
		Strategy:   "sma_crossover",
		Cursor:     cursor,
		TradeCount: 3,
		UpdatedAt:  cursor,
	}
}

func (s *FileStoreTestSuite) TestLoadMissingReturnsNone() {
	cp, err := s.store.Load(s.pair())
	s.Require().NoError(err)
	s.True(cp.IsNone())
}

func (s *FileStoreTestSuite) TestSaveThenLoad() {
	cursor := time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Save(s.checkpoint(cursor)))

	loaded, err := s.store.Load(s.pair())
	s.Require().NoError(err)
	s.Require().True(loaded.IsSome())
	s.True(loaded.Unwrap().Cursor.Equal(cursor))
	s.Equal(3, loaded.Unwrap().TradeCount)
}

func (s *FileStoreTestSuite) TestSaveIsIdempotent() {
	cursor := time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Save(s.checkpoint(cursor)))
	s.Require().NoError(s.store.Save(s.checkpoint(cursor)))

	loaded, err := s.store.Load(s.pair())
	s.Require().NoError(err)
	s.True(loaded.Unwrap().Cursor.Equal(cursor))
}

func (s *FileStoreTestSuite) TestCursorCannotRegress() {
	s.Require().NoError(s.store.Save(s.checkpoint(time.Date(2010, 9, 1, 0, 0, 0, 0, time.UTC))))

	err := s.store.Save(s.checkpoint(time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC)))
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeCursorRegression))
}

func (s *FileStoreTestSuite) TestCorruptCheckpointIsAnError() {
	path := filepath.Join(s.dir, s.pair().String()+".json")
	s.Require().NoError(os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := s.store.Load(s.pair())
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeCheckpointCorrupt))
}

func (s *FileStoreTestSuite) TestPairsAreIndependent() {
	s.Require().NoError(s.store.Save(s.checkpoint(time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC))))

	other := types.NewPairKey("BANKNIFTY", "ema_crossover")
	cp, err := s.store.Load(other)
	s.Require().NoError(err)
	s.True(cp.IsNone())
}

func (s *FileStoreTestSuite) TestNoTempFilesLeftBehind() {
	s.Require().NoError(s.store.Save(s.checkpoint(time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC))))

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1)
}
