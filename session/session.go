package session

import (
	"fmt"

	"github.com/pierredavidbelanger/logscope/api"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const NoResultsMessage = "No logs found. Try adjusting your search criteria."

// Entry pairs a fetched record with the identifier used to look it up again.
type Entry struct {
	ID     string
	Record *api.LogRecord
}

// Session is a snapshot of the search state, as consumed by a renderer.
type Session struct {
	State        State
	CurrentPage  int
	PageSize     int
	TotalPages   int
	TotalMatches int
	Entries      []Entry
	Err          string
	Criteria     api.FilterCriteria
}

func (s Session) HasPrev() bool {
	return s.CurrentPage > 1
}

func (s Session) HasNext() bool {
	return s.CurrentPage < s.TotalPages
}

// CountLabel is the number of displayed records, e.g. "(10)".
func (s Session) CountLabel() string {
	return fmt.Sprintf("(%d)", len(s.Entries))
}

func (s Session) PageLabel() string {
	if s.TotalPages > 1 {
		return fmt.Sprintf("Page %d of %d", s.CurrentPage, s.TotalPages)
	}
	return fmt.Sprintf("Page %d", s.CurrentPage)
}

// Message is the text shown in place of the list, empty when there are entries.
func (s Session) Message() string {
	switch s.State {
	case StateError:
		return "Error fetching logs: " + s.Err
	case StateLoading:
		if len(s.Entries) == 0 {
			return "Loading..."
		}
	case StateReady:
		if len(s.Entries) == 0 {
			return NoResultsMessage
		}
	}
	return ""
}

func (s Session) clone() Session {
	c := s
	c.Entries = append([]Entry(nil), s.Entries...)
	return c
}

func totalPages(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

func clampPage(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}
