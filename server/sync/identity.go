package serversync

import (
	"context"
	"net/http"
	"sync"

	"github.com/Pjt727/homeroom/calsync"
)

const (
	UserIDHeader    = "X-User-ID"
	UserEmailHeader = "X-User-Email"
)

type contextKey string

const userKey contextKey = "user"

// the account the request acts for, set by the auth proxy in front of us
type user struct {
	ID    string
	Email string
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := user{ID: r.Header.Get(UserIDHeader), Email: r.Header.Get(UserEmailHeader)}
		if u.ID == "" || u.Email == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) user {
	u, _ := ctx.Value(userKey).(user)
	return u
}

// inFlight keeps one sync per subject of a user running at a time. A sync
// of all students covers every subject of the user.
type inFlight struct {
	mu      sync.Mutex
	running map[string]map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{running: make(map[string]map[string]struct{})}
}

func (f *inFlight) acquire(userID, subjectID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	subjects, ok := f.running[userID]
	if !ok {
		subjects = make(map[string]struct{})
		f.running[userID] = subjects
	}
	if _, ok := subjects[calsync.AllStudentsSubject]; ok {
		return false
	}
	if _, ok := subjects[subjectID]; ok {
		return false
	}
	if subjectID == calsync.AllStudentsSubject && len(subjects) > 0 {
		return false
	}
	subjects[subjectID] = struct{}{}
	return true
}

func (f *inFlight) release(userID, subjectID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subjects := f.running[userID]
	delete(subjects, subjectID)
	if len(subjects) == 0 {
		delete(f.running, userID)
	}
}
