package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"gorm.io/gorm"
)

// Memory is a mutex-guarded in-process store. Per-aggregate views obtained
// through Orders(), Tickets() etc. implement the repository interfaces with
// the same conditional-update semantics as the gorm implementations: every
// state mutation checks its precondition and applies under one lock, so claim
// races behave as they do against the real store. It backs the test suite and
// the no-database development mode.
type Memory struct {
	mu sync.Mutex

	orders        map[uint64]*model.Order
	tracking      []model.TrackingEvent
	tickets       map[uint64]*model.Ticket
	messages      []model.ChatMessage
	users         map[uint64]*model.User
	notifications []model.Notification

	nextOrderID    uint64
	nextTrackingID uint64
	nextTicketID   uint64
	nextMessageID  uint64
	nextNotifID    uint64
}

func NewMemory() *Memory {
	return &Memory{
		orders:  make(map[uint64]*model.Order),
		tickets: make(map[uint64]*model.Ticket),
		users:   make(map[uint64]*model.User),
	}
}

func (m *Memory) Orders() OrderRepository               { return &memoryOrders{m} }
func (m *Memory) Tracking() TrackingRepository          { return &memoryTracking{m} }
func (m *Memory) Tickets() TicketRepository             { return &memoryTickets{m} }
func (m *Memory) Chat() ChatRepository                  { return &memoryChat{m} }
func (m *Memory) Users() UserRepository                 { return &memoryUsers{m} }
func (m *Memory) Notifications() NotificationRepository { return &memoryNotifications{m} }

func copyOrder(o *model.Order) *model.Order {
	cp := *o
	if o.ManagerID != nil {
		id := *o.ManagerID
		cp.ManagerID = &id
	}
	return &cp
}

func copyTicket(t *model.Ticket) *model.Ticket {
	cp := *t
	if t.ManagerID != nil {
		id := *t.ManagerID
		cp.ManagerID = &id
	}
	if t.AcceptedAt != nil {
		at := *t.AcceptedAt
		cp.AcceptedAt = &at
	}
	return &cp
}

func (m *Memory) appendTrackingLocked(ev *model.TrackingEvent) {
	m.nextTrackingID++
	ev.ID = m.nextTrackingID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	m.tracking = append(m.tracking, *ev)
}

type memoryOrders struct{ m *Memory }

var _ OrderRepository = (*memoryOrders)(nil)

func (r *memoryOrders) Create(ctx context.Context, o *model.Order) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOrderID++
	o.ID = m.nextOrderID
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.Status == "" {
		o.Status = model.OrderStatusPending
	}
	if o.OfferStatus == "" {
		o.OfferStatus = model.OfferStatusDraft
	}
	m.orders[o.ID] = copyOrder(o)
	return nil
}

func (r *memoryOrders) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyOrder(o), nil
}

func (r *memoryOrders) List(ctx context.Context, scope OrderListScope) ([]model.Order, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Order
	for _, o := range m.orders {
		switch {
		case scope.All:
		case scope.Incoming:
			if o.ManagerID != nil || o.Status != model.OrderStatusPending {
				continue
			}
		case scope.ManagerID != 0:
			if !o.AssignedTo(scope.ManagerID) {
				continue
			}
		default:
			if o.ClientID != scope.ClientID {
				continue
			}
		}
		list = append(list, *copyOrder(o))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (r *memoryOrders) Claim(ctx context.Context, orderID, managerID uint64) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	if o.ManagerID != nil || o.Status != model.OrderStatusPending {
		return false, nil
	}
	id := managerID
	o.ManagerID = &id
	o.Status = model.OrderStatusAccepted
	o.TrackingNumber = model.NewTrackingNumber()
	o.UpdatedAt = time.Now()
	m.appendTrackingLocked(&model.TrackingEvent{
		OrderID:     orderID,
		Status:      model.OrderStatusAccepted,
		Description: model.TrackingDescription(model.OrderStatusAccepted),
	})
	return true, nil
}

func (r *memoryOrders) UpdateStatusIf(ctx context.Context, orderID uint64, from, to model.OrderStatus, ev *model.TrackingEvent) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	m.appendTrackingLocked(ev)
	return true, nil
}

func (r *memoryOrders) CancelIf(ctx context.Context, orderID uint64, ev *model.TrackingEvent) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status.Terminal() {
		return false, nil
	}
	o.Status = model.OrderStatusCancelled
	o.UpdatedAt = time.Now()
	m.appendTrackingLocked(ev)
	return true, nil
}

func (r *memoryOrders) UpdateOfferIf(ctx context.Context, orderID, managerID uint64, offer model.Order) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || !o.AssignedTo(managerID) || o.Status.Terminal() {
		return false, nil
	}
	if o.OfferStatus == model.OfferStatusAccepted {
		return false, nil
	}
	o.OfferStatus = model.OfferStatusSent
	o.OfferPrice = offer.OfferPrice
	o.OfferCurrency = offer.OfferCurrency
	o.OfferDeliveryDays = offer.OfferDeliveryDays
	o.OfferComment = offer.OfferComment
	o.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryOrders) RespondOfferIf(ctx context.Context, orderID, clientID uint64, decision model.OfferStatus) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.ClientID != clientID || o.OfferStatus != model.OfferStatusSent {
		return false, nil
	}
	o.OfferStatus = decision
	o.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryOrders) CountByStatus(ctx context.Context, scope OrderListScope) (StatusCounts, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(StatusCounts)
	for _, o := range m.orders {
		switch {
		case scope.All:
		case scope.ManagerID != 0:
			if !o.AssignedTo(scope.ManagerID) {
				continue
			}
		default:
			if o.ClientID != scope.ClientID {
				continue
			}
		}
		counts[o.Status]++
	}
	return counts, nil
}

type memoryTracking struct{ m *Memory }

var _ TrackingRepository = (*memoryTracking)(nil)

func (r *memoryTracking) Append(ctx context.Context, ev *model.TrackingEvent) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendTrackingLocked(ev)
	return nil
}

func (r *memoryTracking) ListByOrder(ctx context.Context, orderID uint64) ([]model.TrackingEvent, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.TrackingEvent
	for _, ev := range m.tracking {
		if ev.OrderID == orderID {
			list = append(list, ev)
		}
	}
	return list, nil
}

type memoryTickets struct{ m *Memory }

var _ TicketRepository = (*memoryTickets)(nil)

func (r *memoryTickets) Create(ctx context.Context, t *model.Ticket) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTicketID++
	t.ID = m.nextTicketID
	t.CreatedAt = time.Now()
	if t.Status == "" {
		t.Status = model.TicketStatusNew
	}
	m.tickets[t.ID] = copyTicket(t)
	return nil
}

func (r *memoryTickets) FindByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyTicket(t), nil
}

func (r *memoryTickets) FindOpenByOrder(ctx context.Context, orderID uint64) (*model.Ticket, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *model.Ticket
	for _, t := range m.tickets {
		if t.OrderID == orderID && t.Status != model.TicketStatusClosed {
			if found == nil || t.ID > found.ID {
				found = t
			}
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return copyTicket(found), nil
}

func ticketOwnedBy(t *model.Ticket, managerID uint64) bool {
	return t.ManagerID != nil && *t.ManagerID == managerID
}

func (r *memoryTickets) ListForManager(ctx context.Context, managerID uint64, status model.TicketStatus) ([]model.Ticket, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Ticket
	for _, t := range m.tickets {
		switch status {
		case "":
			if !ticketOwnedBy(t, managerID) && !(t.ManagerID == nil && t.Status == model.TicketStatusNew) {
				continue
			}
		case model.TicketStatusNew:
			if t.ManagerID != nil || t.Status != model.TicketStatusNew {
				continue
			}
		default:
			if !ticketOwnedBy(t, managerID) || t.Status != status {
				continue
			}
		}
		list = append(list, *copyTicket(t))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (r *memoryTickets) AcceptIf(ctx context.Context, ticketID, orderID, managerID uint64) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok || t.Status != model.TicketStatusNew || t.ManagerID != nil {
		return false, nil
	}
	o, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	if o.ManagerID != nil && *o.ManagerID != managerID {
		return false, nil
	}
	id := managerID
	now := time.Now()
	t.ManagerID = &id
	t.Status = model.TicketStatusAccepted
	t.AcceptedAt = &now
	if o.ManagerID == nil {
		bound := managerID
		o.ManagerID = &bound
		o.UpdatedAt = now
	}
	return true, nil
}

func (r *memoryTickets) CloseIf(ctx context.Context, ticketID uint64) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok || t.Status == model.TicketStatusClosed {
		return false, nil
	}
	t.Status = model.TicketStatusClosed
	return true, nil
}

func (r *memoryTickets) CountForManager(ctx context.Context, managerID uint64, status model.TicketStatus) (int64, error) {
	list, err := r.ListForManager(ctx, managerID, status)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

type memoryChat struct{ m *Memory }

var _ ChatRepository = (*memoryChat)(nil)

func (r *memoryChat) Append(ctx context.Context, msg *model.ChatMessage) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMessageID++
	msg.ID = m.nextMessageID
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, *msg)
	return nil
}

func (r *memoryChat) ListSince(ctx context.Context, orderID, sinceID uint64) ([]model.ChatMessage, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.ChatMessage
	for _, msg := range m.messages {
		if msg.OrderID == orderID && msg.ID > sinceID {
			list = append(list, msg)
		}
	}
	return list, nil
}

type memoryUsers struct{ m *Memory }

var _ UserRepository = (*memoryUsers)(nil)

func (r *memoryUsers) Upsert(ctx context.Context, u *model.User) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if existing, ok := m.users[u.ID]; ok {
		existing.Username = u.Username
		existing.FirstName = u.FirstName
		existing.LastName = u.LastName
		existing.UpdatedAt = now
		u.Role = existing.Role
		return nil
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = model.RoleClient
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (r *memoryUsers) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUsers) List(ctx context.Context, role model.Role) ([]model.User, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.User
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		list = append(list, *u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *memoryUsers) UpdateProfile(ctx context.Context, id uint64, username, firstName, lastName string) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Username = username
	u.FirstName = firstName
	u.LastName = lastName
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memoryUsers) SetRole(ctx context.Context, id uint64, role model.Role) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryUsers) Count(ctx context.Context) (int64, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

type memoryNotifications struct{ m *Memory }

var _ NotificationRepository = (*memoryNotifications)(nil)

func (r *memoryNotifications) Create(ctx context.Context, n *model.Notification) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNotifID++
	n.ID = m.nextNotifID
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (r *memoryNotifications) ListByUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	var list []model.Notification
	for i := len(m.notifications) - 1; i >= 0 && len(list) < limit; i-- {
		n := m.notifications[i]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		list = append(list, n)
	}
	return list, nil
}

func (r *memoryNotifications) MarkAllRead(ctx context.Context, userID uint64) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for i := range m.notifications {
		if m.notifications[i].UserID == userID && m.notifications[i].ReadAt == nil {
			m.notifications[i].ReadAt = &now
		}
	}
	return nil
}

func (r *memoryNotifications) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	var cnt int64
	for _, n := range m.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			cnt++
		}
	}
	return cnt, nil
}
