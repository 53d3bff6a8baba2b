// Package policyrepo keeps a git repository per company holding every
// version of its attached policies. Each attach commits the file, so HR
// can audit what a policy said at any point in time.
package policyrepo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Version describes one committed revision of a policy file.
type Version struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
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

// Commit stores a policy file revision in the company's repository,
// creating the repository on first use.
func (s *Service) Commit(companyID, fileName string, content []byte, author, message string) (Version, error) {
	lock := s.companyLock(companyID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(companyID)
	if err != nil {
		return Version{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Version{}, fmt.Errorf("open worktree: %w", err)
	}

	path := filepath.Join(worktree.Filesystem.Root(), fileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Version{}, fmt.Errorf("create policy dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return Version{}, fmt.Errorf("write policy file: %w", err)
	}
	if _, err := worktree.Add(fileName); err != nil {
		return Version{}, fmt.Errorf("git add policy: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: sanitizeEmail(author) + "@hrsupport.local",
			When:  time.Now(),
		},
	})
	if err != nil {
		return Version{}, fmt.Errorf("commit policy: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Version{}, fmt.Errorf("read commit object: %w", err)
	}
	return toVersion(commitObj), nil
}

// History lists the revisions that touched a policy file, newest first.
func (s *Service) History(companyID, fileName string, limit int) ([]Version, error) {
	lock := s.companyLock(companyID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(companyID))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{FileName: &fileName})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	versions := make([]Version, 0, limit)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		versions = append(versions, toVersion(commitObj))
		if limit > 0 && len(versions) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return versions, nil
}

// GetVersion returns the policy file content at a specific revision.
func (s *Service) GetVersion(companyID, fileName, hash string) ([]byte, error) {
	lock := s.companyLock(companyID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(companyID))
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return nil, fmt.Errorf("resolve revision %s: %w", hash, err)
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commitObj.File(fileName)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", fileName, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open file reader: %w", err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *Service) openOrInit(companyID string) (*git.Repository, error) {
	path := s.repoPath(companyID)
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

func (s *Service) repoPath(companyID string) string {
	return filepath.Join(s.baseDir, companyID)
}

func (s *Service) companyLock(companyID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[companyID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[companyID] = lock
	}
	return lock
}

func toVersion(commitObj *object.Commit) Version {
	return Version{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "hr"
	}
	return string(out)
}
