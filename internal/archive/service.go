// Package archive keeps a git-backed history of every grid a user persists.
// Each user owns one repository whose single tracked file, data.csv, is the
// encoded cell grid; every successful write becomes a commit, so past states
// stay recoverable even on a last-writer-wins backend.
package archive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const gridFile = "data.csv"

// Version describes one archived state.
type Version struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func (s *Service) repoPath(userID string) string {
	return filepath.Join(s.baseDir, userID)
}

// CommitGrid records the grid as the user's newest archived state, creating
// the repository on first use. An unchanged grid is a no-op that returns the
// current head.
func (s *Service) CommitGrid(userID string, grid [][]string, message string) (Version, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(userID)
	if err != nil {
		return Version{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Version{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := marshalGrid(grid)
	if err != nil {
		return Version{}, err
	}
	path := filepath.Join(s.repoPath(userID), gridFile)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return Version{}, fmt.Errorf("write grid file: %w", err)
	}
	if _, err := worktree.Add(gridFile); err != nil {
		return Version{}, fmt.Errorf("git add grid: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  userID,
			Email: userID + "@daymark.local",
			When:  time.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return s.headVersion(repo)
	}
	if err != nil {
		return Version{}, fmt.Errorf("commit grid: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Version{}, fmt.Errorf("read commit object: %w", err)
	}
	return toVersion(commitObj), nil
}

// Versions lists archived states, newest first.
func (s *Service) Versions(userID string, limit int) ([]Version, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(userID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Version{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return []Version{}, nil // repo initialized but nothing committed
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	versions := make([]Version, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		versions = append(versions, toVersion(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return versions, nil
}

// GridAt returns the grid as it was at a given commit.
func (s *Service) GridAt(userID, hash string) ([][]string, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(userID))
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}

	file, err := commitObj.File(gridFile)
	if err != nil {
		return nil, fmt.Errorf("grid file at %s: %w", hash, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read grid at %s: %w", hash, err)
	}
	return unmarshalGrid(contents)
}

func (s *Service) openOrInit(userID string) (*git.Repository, error) {
	path := s.repoPath(userID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func (s *Service) headVersion(repo *git.Repository) (Version, error) {
	head, err := repo.Head()
	if err != nil {
		return Version{}, fmt.Errorf("resolve head: %w", err)
	}
	commitObj, err := repo.CommitObject(head.Hash())
	if err != nil {
		return Version{}, fmt.Errorf("read head commit: %w", err)
	}
	return toVersion(commitObj), nil
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	parsed := plumbing.NewHash(hash)
	if parsed.IsZero() {
		return plumbing.ZeroHash, fmt.Errorf("invalid commit hash %q", hash)
	}
	if _, err := repo.CommitObject(parsed); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("unknown commit %q: %w", hash, err)
	}
	return parsed, nil
}

func toVersion(commitObj *object.Commit) Version {
	return Version{
		Hash:    commitObj.Hash.String(),
		Message: commitObj.Message,
		When:    commitObj.Author.When,
	}
}

func marshalGrid(grid [][]string) ([]byte, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	for _, row := range grid {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("encode grid csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode grid csv: %w", err)
	}
	return []byte(sb.String()), nil
}

func unmarshalGrid(contents string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(contents))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode grid csv: %w", err)
	}
	return rows, nil
}
