package healthdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/strrl/health-sessions/pkg/models"
)

type MemoryService struct {
	mu      sync.RWMutex
	byUID   map[string]models.SessionRecord
	ordered []string
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		byUID: make(map[string]models.SessionRecord),
	}
}

func (s *MemoryService) FetchAll(ctx context.Context) ([]models.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("fetch sessions", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.SessionRecord, 0, len(s.ordered))
	for _, uid := range s.ordered {
		records = append(records, s.byUID[uid])
	}
	return records, nil
}

func (s *MemoryService) Insert(ctx context.Context, record models.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return wrap("insert session", err)
	}
	record = withUID(record)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUID[record.UID]; exists {
		return NewError("insert session", KindUnknown, fmt.Errorf("uid %s already exists", record.UID))
	}
	s.byUID[record.UID] = record
	s.ordered = append(s.ordered, record.UID)
	return nil
}

func (s *MemoryService) Delete(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return wrap("delete session", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUID[uid]; !exists {
		return NewError("delete session", KindNotFound, fmt.Errorf("uid %s", uid))
	}
	delete(s.byUID, uid)
	for i, id := range s.ordered {
		if id == uid {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return nil
}
