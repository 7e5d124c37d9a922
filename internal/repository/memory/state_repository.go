package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// StateRepository holds short-lived OAuth login states in memory.
// A state is valid for one callback only; Consume removes it.
type StateRepository struct {
	cache *cache.Cache
}

func NewStateRepository() *StateRepository {
	// Login states expire after 10 minutes; purge sweep every 5.
	c := cache.New(10*time.Minute, 5*time.Minute)
	return &StateRepository{
		cache: c,
	}
}

func (r *StateRepository) Save(state, provider string) {
	r.cache.Set(state, provider, cache.DefaultExpiration)
}

// Consume validates and burns a state in one step.
func (r *StateRepository) Consume(state string) (string, bool) {
	x, found := r.cache.Get(state)
	if !found {
		return "", false
	}
	r.cache.Delete(state)
	return x.(string), true
}
