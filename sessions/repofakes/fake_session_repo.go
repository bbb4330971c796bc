package fakesessionrepo

import (
	"sync"

	"github.com/jrsteele09/go-signatory/sessions"
	"github.com/pkg/errors"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	lines     []string
	appendErr error
	lock      sync.RWMutex
}

func NewFakeSessionRepo(lines ...string) *FakeSessionRepo {
	return &FakeSessionRepo{lines: append([]string(nil), lines...)}
}

// FailAppends makes every following Append return err.
func (sr *FakeSessionRepo) FailAppends(err error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.appendErr = err
}

// Lines returns a copy of the raw ledger lines.
func (sr *FakeSessionRepo) Lines() []string {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return append([]string(nil), sr.lines...)
}

func (sr *FakeSessionRepo) Contains(id sessions.ID) (bool, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	key := id.String()
	for _, line := range sr.lines {
		if line == key {
			return true, nil
		}
	}
	return false, nil
}

func (sr *FakeSessionRepo) Append(id sessions.ID) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.appendErr != nil {
		return sr.appendErr
	}
	sr.lines = append(sr.lines, id.String())
	return nil
}

func (sr *FakeSessionRepo) Count() (int, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.lines), nil
}

func (sr *FakeSessionRepo) List() ([]sessions.ID, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	ids := make([]sessions.ID, 0, len(sr.lines))
	for _, line := range sr.lines {
		id, err := sessions.Parse(line)
		if err != nil {
			return nil, errors.Wrap(err, "[FakeSessionRepo.List]")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
