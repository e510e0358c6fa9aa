package services

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/creditconsole/internal/client/client"
	"github.com/dmitrijs2005/creditconsole/internal/client/listquery"
	"github.com/dmitrijs2005/creditconsole/internal/client/notify"
	"github.com/dmitrijs2005/creditconsole/internal/client/pagination"
	"github.com/dmitrijs2005/creditconsole/internal/common"
	"github.com/dmitrijs2005/creditconsole/internal/logging"
)

// Column is one table column: a header and the JSON field it shows.
type Column struct {
	Title string
	Field string
}

// Resource is a list endpoint the console can browse.
type Resource struct {
	Name     string
	Endpoint string
	Fixed    url.Values
	Columns  []Column
}

// Row is one decoded list item.
type Row map[string]any

// Cell renders field for a table. Missing and null values render empty.
func (r Row) Cell(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

var resources = []Resource{
	{
		Name:     "users",
		Endpoint: "/users",
		Columns: []Column{
			{"ID", "user_id"}, {"USERNAME", "username"}, {"NAME", "real_name"},
			{"TYPE", "user_type"}, {"STATUS", "status"},
		},
	},
	{
		Name:     "students",
		Endpoint: "/search/users",
		Fixed:    url.Values{"user_type": {"student"}},
		Columns: []Column{
			{"USERNAME", "username"}, {"NAME", "real_name"}, {"COLLEGE", "college"},
			{"MAJOR", "major"}, {"CLASS", "class"}, {"GRADE", "grade"},
		},
	},
	{
		Name:     "teachers",
		Endpoint: "/search/users",
		Fixed:    url.Values{"user_type": {"teacher"}},
		Columns: []Column{
			{"USERNAME", "username"}, {"NAME", "real_name"}, {"DEPARTMENT", "department"},
			{"TITLE", "title"}, {"STATUS", "status"},
		},
	},
	{
		Name:     "activities",
		Endpoint: "/activities",
		Columns: []Column{
			{"ID", "id"}, {"TITLE", "title"}, {"CATEGORY", "category"},
			{"STATUS", "status"}, {"START", "start_date"}, {"END", "end_date"},
		},
	},
	{
		Name:     "applications",
		Endpoint: "/applications",
		Columns: []Column{
			{"ID", "id"}, {"ACTIVITY", "activity_id"}, {"STATUS", "status"},
			{"APPLIED", "applied_credits"}, {"AWARDED", "awarded_credits"}, {"SUBMITTED", "submitted_at"},
		},
	},
}

// ListView is an open resource: its query controller plus the rows of the
// last successful fetch.
type ListView struct {
	Resource Resource
	*listquery.Controller[Row]

	mu   sync.RWMutex
	rows []Row
}

func (v *ListView) Rows() []Row {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Row(nil), v.rows...)
}

func (v *ListView) setRows(rows []Row) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = rows
}

type ListService interface {
	Resources() []Resource
	Open(name string) (*ListView, error)
}

type listService struct {
	sender   client.Sender
	notifier notify.Notifier
	log      logging.Logger
	pageSize int
}

func NewListService(sender client.Sender, notifier notify.Notifier, log logging.Logger, pageSize int) ListService {
	return &listService{sender: sender, notifier: notifier, log: log, pageSize: pageSize}
}

func (s *listService) Resources() []Resource {
	out := append([]Resource(nil), resources...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Open returns a fresh view of the named resource. Nothing is fetched yet.
func (s *listService) Open(name string) (*ListView, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range resources {
		if r.Name != name {
			continue
		}
		v := &ListView{Resource: r}
		v.Controller = listquery.New[Row](s.sender, v.setRows, listquery.Options{
			Endpoint: r.Endpoint,
			Fixed:    r.Fixed,
			Pagination: pagination.Options{
				PageSize:       s.pageSize,
				FailureMessage: fmt.Sprintf("Failed to load %s", r.Name),
				Notifier:       s.notifier,
				Logger:         s.log.With("resource", r.Name),
			},
		})
		return v, nil
	}
	return nil, fmt.Errorf("%w: resource %q", common.ErrorNotFound, name)
}
