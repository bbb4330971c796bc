package filerepo

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jrsteele09/go-signatory/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ sessions.Repo = (*FileRepo)(nil)

// FileRepo is a newline delimited ledger file. The whole file is read on
// every lookup so edits made by hand between runs are picked up.
type FileRepo struct {
	path string
	lock sync.Mutex
}

// New opens the ledger at path, creating an empty file (and its directory)
// when it does not exist yet.
func New(path string) (*FileRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "[filerepo.New] MkdirAll")
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "[filerepo.New] OpenFile")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "[filerepo.New] Close")
	}
	return &FileRepo{path: path}, nil
}

// Path returns the ledger file location.
func (r *FileRepo) Path() string {
	return r.path
}

func (r *FileRepo) Contains(id sessions.ID) (bool, error) {
	key := id.String()
	found := false
	err := r.scan(func(line string) bool {
		found = line == key
		return !found
	})
	if err != nil {
		return false, errors.Wrap(err, "[FileRepo.Contains]")
	}
	return found, nil
}

func (r *FileRepo) Append(id sessions.ID) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Append] OpenFile")
	}
	if _, err := f.WriteString(id.String() + "\n"); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "[FileRepo.Append] WriteString")
	}
	return errors.Wrap(f.Close(), "[FileRepo.Append] Close")
}

func (r *FileRepo) Count() (int, error) {
	n := 0
	err := r.scan(func(line string) bool {
		if line != "" {
			n++
		}
		return true
	})
	if err != nil {
		return 0, errors.Wrap(err, "[FileRepo.Count]")
	}
	return n, nil
}

func (r *FileRepo) List() ([]sessions.ID, error) {
	var ids []sessions.ID
	err := r.scan(func(line string) bool {
		if line == "" {
			return true
		}
		id, err := sessions.Parse(line)
		if err != nil {
			log.Warn().Err(err).Str("ledger", r.path).Msg("Skipping unreadable ledger line")
			return true
		}
		ids = append(ids, id)
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo.List]")
	}
	return ids, nil
}

// scan calls fn for every line until fn returns false. Lines have no length
// limit so one corrupt entry cannot hide the ones after it.
func (r *FileRepo) scan(fn func(line string) bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if line != "" && !fn(strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")) {
			return nil
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
