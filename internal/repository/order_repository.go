package repository

import (
	"context"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"gorm.io/gorm"
)

// OrderListScope selects which slice of orders a listing returns.
type OrderListScope struct {
	ClientID  uint64 // orders owned by this client
	ManagerID uint64 // orders assigned to this manager
	Incoming  bool   // unclaimed pending pool
	All       bool   // admin view
}

// StatusCounts is the per-status breakdown used by the stats endpoint.
type StatusCounts map[model.OrderStatus]int64

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id uint64) (*model.Order, error)
	List(ctx context.Context, scope OrderListScope) ([]model.Order, error)

	// Claim atomically binds managerID to an unclaimed pending order, moves it
	// to accepted, mints the tracking number and appends the tracking event in
	// one transaction. Returns false without side effects when the order was
	// already claimed or is not pending.
	Claim(ctx context.Context, orderID, managerID uint64) (bool, error)

	// UpdateStatusIf transitions status from exactly `from` to `to` and appends
	// ev in the same transaction. Returns false when the stored status no
	// longer matches `from`.
	UpdateStatusIf(ctx context.Context, orderID uint64, from, to model.OrderStatus, ev *model.TrackingEvent) (bool, error)

	// CancelIf cancels the order unless it is already terminal.
	CancelIf(ctx context.Context, orderID uint64, ev *model.TrackingEvent) (bool, error)

	// UpdateOfferIf overwrites the live offer while it is still negotiable
	// (anything but accepted) and the order is owned by managerID and not
	// terminal.
	UpdateOfferIf(ctx context.Context, orderID, managerID uint64, offer model.Order) (bool, error)

	// RespondOfferIf records the client decision only while the offer is sent.
	RespondOfferIf(ctx context.Context, orderID, clientID uint64, decision model.OfferStatus) (bool, error)

	CountByStatus(ctx context.Context, scope OrderListScope) (StatusCounts, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) List(ctx context.Context, scope OrderListScope) ([]model.Order, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	switch {
	case scope.All:
	case scope.Incoming:
		q = q.Where("manager_id IS NULL AND status = ?", model.OrderStatusPending)
	case scope.ManagerID != 0:
		q = q.Where("manager_id = ?", scope.ManagerID)
	default:
		q = q.Where("client_id = ?", scope.ClientID)
	}
	var list []model.Order
	if err := q.Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepository) Claim(ctx context.Context, orderID, managerID uint64) (bool, error) {
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND manager_id IS NULL AND status = ?", orderID, model.OrderStatusPending).
			Updates(map[string]interface{}{
				"manager_id":      managerID,
				"status":          model.OrderStatusAccepted,
				"tracking_number": model.NewTrackingNumber(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		claimed = true
		return tx.Create(&model.TrackingEvent{
			OrderID:     orderID,
			Status:      model.OrderStatusAccepted,
			Description: model.TrackingDescription(model.OrderStatusAccepted),
		}).Error
	})
	return claimed, err
}

func (r *orderRepository) UpdateStatusIf(ctx context.Context, orderID uint64, from, to model.OrderStatus, ev *model.TrackingEvent) (bool, error) {
	moved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND status = ?", orderID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		moved = true
		return tx.Create(ev).Error
	})
	return moved, err
}

func (r *orderRepository) CancelIf(ctx context.Context, orderID uint64, ev *model.TrackingEvent) (bool, error) {
	cancelled := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND status NOT IN ?", orderID,
				[]model.OrderStatus{model.OrderStatusCompleted, model.OrderStatusCancelled}).
			Update("status", model.OrderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		cancelled = true
		return tx.Create(ev).Error
	})
	return cancelled, err
}

func (r *orderRepository) UpdateOfferIf(ctx context.Context, orderID, managerID uint64, offer model.Order) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND manager_id = ? AND offer_status IN ? AND status NOT IN ?",
			orderID, managerID,
			[]model.OfferStatus{model.OfferStatusDraft, model.OfferStatusSent, model.OfferStatusRejected},
			[]model.OrderStatus{model.OrderStatusCompleted, model.OrderStatusCancelled}).
		Updates(map[string]interface{}{
			"offer_status":        model.OfferStatusSent,
			"offer_price":         offer.OfferPrice,
			"offer_currency":      offer.OfferCurrency,
			"offer_delivery_days": offer.OfferDeliveryDays,
			"offer_comment":       offer.OfferComment,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *orderRepository) RespondOfferIf(ctx context.Context, orderID, clientID uint64, decision model.OfferStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND client_id = ? AND offer_status = ?", orderID, clientID, model.OfferStatusSent).
		Update("offer_status", decision)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context, scope OrderListScope) (StatusCounts, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	switch {
	case scope.All:
	case scope.ManagerID != 0:
		q = q.Where("manager_id = ?", scope.ManagerID)
	default:
		q = q.Where("client_id = ?", scope.ClientID)
	}
	var rows []struct {
		Status model.OrderStatus
		Cnt    int64
	}
	if err := q.Select("status, COUNT(*) AS cnt").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(StatusCounts, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Cnt
	}
	return counts, nil
}
