package repository

import (
	"context"
	"time"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TicketRepository interface {
	Create(ctx context.Context, t *model.Ticket) error
	FindByID(ctx context.Context, id uint64) (*model.Ticket, error)
	FindOpenByOrder(ctx context.Context, orderID uint64) (*model.Ticket, error)

	// ListForManager returns the manager's own tickets plus, when status is
	// empty or "new", the unclaimed pool.
	ListForManager(ctx context.Context, managerID uint64, status model.TicketStatus) ([]model.Ticket, error)

	// AcceptIf claims the ticket for managerID only while it is still new and
	// unowned, and in the same unit binds the order to managerID when the order
	// has no manager yet. An order already owned by a different manager refuses
	// the accept; the losing claimant gets false, not an error. Ticket and
	// order never end up split between two managers.
	AcceptIf(ctx context.Context, ticketID, orderID, managerID uint64) (bool, error)

	// CloseIf closes an accepted ticket; closing an already closed ticket is a
	// no-op reported as false.
	CloseIf(ctx context.Context, ticketID uint64) (bool, error)

	CountForManager(ctx context.Context, managerID uint64, status model.TicketStatus) (int64, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, t *model.Ticket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ticketRepository) FindByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepository) FindOpenByOrder(ctx context.Context, orderID uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND status <> ?", orderID, model.TicketStatusClosed).
		Order("id DESC").
		First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepository) ListForManager(ctx context.Context, managerID uint64, status model.TicketStatus) ([]model.Ticket, error) {
	q := r.db.WithContext(ctx).Model(&model.Ticket{})
	switch status {
	case "":
		q = q.Where("manager_id = ? OR (manager_id IS NULL AND status = ?)", managerID, model.TicketStatusNew)
	case model.TicketStatusNew:
		q = q.Where("manager_id IS NULL AND status = ?", model.TicketStatusNew)
	default:
		q = q.Where("manager_id = ? AND status = ?", managerID, status)
	}
	var list []model.Ticket
	if err := q.Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ticketRepository) AcceptIf(ctx context.Context, ticketID, orderID, managerID uint64) (bool, error) {
	accepted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the order row so a concurrent claim cannot slip in between the
		// ownership check and the writes below.
		var o model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, orderID).Error; err != nil {
			return err
		}
		if o.ManagerID != nil && *o.ManagerID != managerID {
			return nil
		}
		res := tx.Model(&model.Ticket{}).
			Where("id = ? AND status = ? AND manager_id IS NULL", ticketID, model.TicketStatusNew).
			Updates(map[string]interface{}{
				"manager_id":  managerID,
				"status":      model.TicketStatusAccepted,
				"accepted_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if o.ManagerID == nil {
			if err := tx.Model(&model.Order{}).
				Where("id = ?", orderID).
				Update("manager_id", managerID).Error; err != nil {
				return err
			}
		}
		accepted = true
		return nil
	})
	return accepted, err
}

func (r *ticketRepository) CloseIf(ctx context.Context, ticketID uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND status <> ?", ticketID, model.TicketStatusClosed).
		Update("status", model.TicketStatusClosed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ticketRepository) CountForManager(ctx context.Context, managerID uint64, status model.TicketStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Ticket{})
	if status == model.TicketStatusNew {
		q = q.Where("manager_id IS NULL AND status = ?", status)
	} else if status != "" {
		q = q.Where("manager_id = ? AND status = ?", managerID, status)
	} else {
		q = q.Where("manager_id = ? OR (manager_id IS NULL AND status = ?)", managerID, model.TicketStatusNew)
	}
	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}
