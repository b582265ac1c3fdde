package service

import (
	"context"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/repository"
)

type StatsService interface {
	// Stats returns the role-scoped aggregate counts shown on the dashboard.
	Stats(ctx context.Context, actor Actor) (map[string]int64, error)
}

type statsService struct {
	orders  repository.OrderRepository
	tickets repository.TicketRepository
	users   repository.UserRepository
}

func NewStatsService(orders repository.OrderRepository, tickets repository.TicketRepository, users repository.UserRepository) StatsService {
	return &statsService{orders: orders, tickets: tickets, users: users}
}

func (s *statsService) Stats(ctx context.Context, actor Actor) (map[string]int64, error) {
	switch actor.Role {
	case model.RoleManager:
		return s.managerStats(ctx, actor.ID)
	case model.RoleAdmin:
		return s.adminStats(ctx)
	default:
		return s.clientStats(ctx, actor.ID)
	}
}

func sum(counts repository.StatusCounts) int64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	return total
}

func (s *statsService) clientStats(ctx context.Context, clientID uint64) (map[string]int64, error) {
	counts, err := s.orders.CountByStatus(ctx, repository.OrderListScope{ClientID: clientID})
	if err != nil {
		return nil, storeErr(err)
	}
	return map[string]int64{
		"total_orders": sum(counts),
		"pending":      counts[model.OrderStatusPending],
		"in_transit":   counts[model.OrderStatusInTransit],
		"delivered":    counts[model.OrderStatusDelivered],
	}, nil
}

func (s *statsService) managerStats(ctx context.Context, managerID uint64) (map[string]int64, error) {
	counts, err := s.orders.CountByStatus(ctx, repository.OrderListScope{ManagerID: managerID})
	if err != nil {
		return nil, storeErr(err)
	}
	totalTickets, err := s.tickets.CountForManager(ctx, managerID, "")
	if err != nil {
		return nil, storeErr(err)
	}
	newTickets, err := s.tickets.CountForManager(ctx, managerID, model.TicketStatusNew)
	if err != nil {
		return nil, storeErr(err)
	}
	return map[string]int64{
		"total_tickets": totalTickets,
		"new_tickets":   newTickets,
		"total_orders":  sum(counts),
		"in_progress":   counts[model.OrderStatusInTransit],
	}, nil
}

func (s *statsService) adminStats(ctx context.Context) (map[string]int64, error) {
	counts, err := s.orders.CountByStatus(ctx, repository.OrderListScope{All: true})
	if err != nil {
		return nil, storeErr(err)
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return map[string]int64{
		"total_orders":   sum(counts),
		"total_users":    totalUsers,
		"pending_orders": counts[model.OrderStatusPending],
	}, nil
}
