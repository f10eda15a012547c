package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
	open  func(dir string) (Store, error)
	store Store
}

func (s *StoreSuite) SetupTest() {
	st, err := s.open(s.T().TempDir())
	s.Require().NoError(err)
	s.store = st
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Shutdown())
}

func (s *StoreSuite) TestReadMissing() {
	_, err := s.store.Read(context.Background(), "10001", "lexicon/M_1.json")
	s.ErrorIs(err, ErrNotExist)
}

func (s *StoreSuite) TestWriteThenRead() {
	ctx := context.Background()

	s.Require().NoError(s.store.Write(ctx, "10001", "lexicon/M_1.json", `{"work":[]}`))
	s.Require().NoError(s.store.Write(ctx, "10001", "lexicon/M_1.json", `{"work":[{"hi":{"r":["hello"],"s":1}}]}`))

	text, err := s.store.Read(ctx, "10001", "lexicon/M_1.json")
	s.Require().NoError(err)
	s.Equal(`{"work":[{"hi":{"r":["hello"],"s":1}}]}`, text)

	_, err = s.store.Read(ctx, "10002", "lexicon/M_1.json")
	s.ErrorIs(err, ErrNotExist)
}

func (s *StoreSuite) TestReadOrDefault() {
	ctx := context.Background()

	text, err := ReadOrDefault(ctx, s.store, "10001", "lexicon/common.json")
	s.Require().NoError(err)
	s.Equal(`{"work":[]}`, text)

	text, err = ReadOrDefault(ctx, s.store, "10001", "config/M_1.txt")
	s.Require().NoError(err)
	s.Equal("", text)
}

func (s *StoreSuite) TestRejectsTraversal() {
	ctx := context.Background()

	s.Error(s.store.Write(ctx, "..", "lexicon/x.json", "{}"))
	s.Error(s.store.Write(ctx, "10001", "../../etc/passwd", "x"))
	s.Error(s.store.Write(ctx, "", "lexicon/x.json", "{}"))
}

func (s *StoreSuite) TestConcurrentWritersDistinctKeys() {
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := filepath.ToSlash(filepath.Join("cooling", string(rune('a'+i))+".txt"))
			s.NoError(s.store.Write(ctx, "10001", key, "x"))
		}(i)
	}
	wg.Wait()

	text, err := s.store.Read(ctx, "10001", "cooling/c.txt")
	s.Require().NoError(err)
	s.Equal("x", text)
}

func TestFileStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(dir string) (Store, error) {
		return NewFile(dir)
	}})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(dir string) (Store, error) {
		return NewSQLite(filepath.Join(dir, "keyword.db"))
	}})
}
