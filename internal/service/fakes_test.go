package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/mail"
	"github.com/spec-kit/support-desk/internal/repository"
)

type fakeCustomerRepo struct {
	mu        sync.Mutex
	nextID    int64
	customers map[int64]*domain.Customer
	// createErr, when set, is returned once by Create after storing nothing.
	createErr error
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: map[int64]*domain.Customer{}}
}

func (r *fakeCustomerRepo) Create(_ context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.createErr; err != nil {
		r.createErr = nil
		return err
	}
	for _, existing := range r.customers {
		if existing.Email == c.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	r.customers[c.ID] = &stored
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.customers[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCustomerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.Email == email {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCustomerRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.customers)
}

type fakeTicketRepo struct {
	mu        sync.Mutex
	nextID    int64
	nextReply int64
	tickets   map[int64]*domain.Ticket
	replies   []domain.TicketReply
	customers *fakeCustomerRepo
	agents    map[int64]*domain.Agent

	createErrs  []error
	addReplyErr error
}

func newFakeTicketRepo(customers *fakeCustomerRepo) *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:   map[int64]*domain.Ticket{},
		customers: customers,
		agents:    map[int64]*domain.Agent{},
	}
}

func (r *fakeTicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		return err
	}
	for _, existing := range r.tickets {
		if existing.ReferenceNumber == t.ReferenceNumber {
			return repository.ErrDuplicateReference
		}
	}
	if t.Status == "" {
		t.Status = domain.TicketStatusNew
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	stored.Customer, stored.Agent, stored.Replies = nil, nil, nil
	r.tickets[t.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) ReferenceExists(_ context.Context, ref string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.ReferenceNumber == ref {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTicketRepo) FindByReference(ctx context.Context, ref string) (*domain.Ticket, error) {
	r.mu.Lock()
	var id int64
	for _, t := range r.tickets {
		if t.ReferenceNumber == ref {
			id = t.ID
		}
	}
	r.mu.Unlock()
	if id == 0 {
		return nil, repository.ErrNotFound
	}
	return r.FindByID(ctx, id, repository.WithCustomer|repository.WithReplies)
}

func (r *fakeTicketRepo) FindByID(_ context.Context, id int64, rel repository.Relations) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.hydrate(*t, rel), nil
}

func (r *fakeTicketRepo) hydrate(t domain.Ticket, rel repository.Relations) *domain.Ticket {
	if rel.Has(repository.WithCustomer) && t.CustomerID != nil {
		if c, err := r.customers.GetByID(context.Background(), *t.CustomerID); err == nil {
			t.Customer = c
		}
	}
	if rel.Has(repository.WithAgent) && t.AgentID != nil {
		t.Agent = r.agents[*t.AgentID]
	}
	if rel.Has(repository.WithReplies) {
		t.Replies = []domain.TicketReply{}
		for _, reply := range r.replies {
			if reply.TicketID == t.ID {
				t.Replies = append(t.Replies, reply)
			}
		}
	}
	return &t
}

func (r *fakeTicketRepo) newestFirst(keep func(*domain.Ticket) bool) []*domain.Ticket {
	matched := []*domain.Ticket{}
	for _, t := range r.tickets {
		if keep(t) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return matched
}

func (r *fakeTicketRepo) paginate(all []*domain.Ticket, page repository.PageRequest, rel repository.Relations) repository.Page[domain.Ticket] {
	page = page.Normalize()
	result := repository.Page[domain.Ticket]{Total: int64(len(all)), Page: page.Page, PageSize: page.PageSize, Items: []domain.Ticket{}}
	start := page.Offset()
	for i := start; i < len(all) && i < start+page.PageSize; i++ {
		result.Items = append(result.Items, *r.hydrate(*all[i], rel))
	}
	return result
}

func (r *fakeTicketRepo) GetAllPaginated(_ context.Context, page repository.PageRequest, rel repository.Relations) (repository.Page[domain.Ticket], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paginate(r.newestFirst(func(*domain.Ticket) bool { return true }), page, rel), nil
}

func (r *fakeTicketRepo) SearchByCustomerName(_ context.Context, pattern string, page repository.PageRequest) (repository.Page[domain.Ticket], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	needle := strings.ToLower(pattern)
	matched := r.newestFirst(func(t *domain.Ticket) bool {
		if t.CustomerID == nil {
			return false
		}
		c, err := r.customers.GetByID(context.Background(), *t.CustomerID)
		return err == nil && strings.Contains(strings.ToLower(c.Name), needle)
	})
	return r.paginate(matched, page, repository.WithCustomer|repository.WithAgent), nil
}

func (r *fakeTicketRepo) Update(_ context.Context, t *domain.Ticket, update repository.TicketUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if update.Summary != nil {
		stored.Summary = *update.Summary
	}
	if update.Description != nil {
		stored.Description = *update.Description
	}
	if update.Status != nil {
		stored.Status = *update.Status
	}
	if update.AgentID != nil {
		id := *update.AgentID
		stored.AgentID = &id
	}
	stored.UpdatedAt = time.Now()
	t.Summary, t.Description, t.Status, t.AgentID, t.UpdatedAt =
		stored.Summary, stored.Description, stored.Status, stored.AgentID, stored.UpdatedAt
	return nil
}

func (r *fakeTicketRepo) AddReply(_ context.Context, t *domain.Ticket, reply *domain.TicketReply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addReplyErr != nil {
		return r.addReplyErr
	}
	stored, ok := r.tickets[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	r.nextReply++
	reply.ID = r.nextReply
	reply.TicketID = t.ID
	reply.CreatedAt = time.Now()
	reply.UpdatedAt = reply.CreatedAt
	saved := *reply
	saved.Agent = r.agents[reply.AgentID]
	r.replies = append(r.replies, saved)

	stored.Status = domain.TicketStatusInProgress
	t.Status = domain.TicketStatusInProgress
	return nil
}

func (r *fakeTicketRepo) LatestReply(_ context.Context, ticketID int64) (*domain.TicketReply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.replies) - 1; i >= 0; i-- {
		if r.replies[i].TicketID == ticketID {
			reply := r.replies[i]
			return &reply, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTicketRepo) status(id int64) domain.TicketStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickets[id].Status
}

type fakeUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.nextID++
	u.ID = r.nextID
	stored := *u
	r.users[u.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeAgentRepo struct {
	nextID int64
	agents map[int64]*domain.Agent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: map[int64]*domain.Agent{}}
}

func (r *fakeAgentRepo) Create(_ context.Context, a *domain.Agent) error {
	r.nextID++
	a.ID = r.nextID
	stored := *a
	r.agents[a.ID] = &stored
	return nil
}

func (r *fakeAgentRepo) GetByID(_ context.Context, id int64) (*domain.Agent, error) {
	if a, ok := r.agents[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAgentRepo) GetByUserID(_ context.Context, userID int64) (*domain.Agent, error) {
	for _, a := range r.agents {
		if a.UserID == userID {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	for _, a := range r.agents {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

// sequenceGenerator hands out references in order, then repeats the last one.
type sequenceGenerator struct {
	refs []string
	next int
}

func (g *sequenceGenerator) Generate() (string, error) {
	ref := g.refs[g.next]
	if g.next < len(g.refs)-1 {
		g.next++
	}
	return ref, nil
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
