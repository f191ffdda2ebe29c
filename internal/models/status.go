package models

// PacketStatus captures the material packet lifecycle.
type PacketStatus string

const (
	PacketStatusPending    PacketStatus = "PENDING"
	PacketStatusAssigned   PacketStatus = "ASSIGNED"
	PacketStatusInProgress PacketStatus = "IN_PROGRESS"
	PacketStatusCompleted  PacketStatus = "COMPLETED"
	PacketStatusApproved   PacketStatus = "APPROVED"
)

// packetTransitions is the packet state machine for worker-driven moves.
// Rejection is the COMPLETED to ASSIGNED edge. Extension re-scopes the
// packet from any status and is guarded by its round, not by this table.
var packetTransitions = map[PacketStatus][]PacketStatus{
	PacketStatusPending:    {PacketStatusAssigned},
	PacketStatusAssigned:   {PacketStatusInProgress},
	PacketStatusInProgress: {PacketStatusCompleted},
	PacketStatusCompleted:  {PacketStatusApproved, PacketStatusAssigned},
	PacketStatusApproved:   {PacketStatusPending, PacketStatusAssigned},
}

// CanTransitionTo reports whether the packet may move to the target status.
func (s PacketStatus) CanTransitionTo(next PacketStatus) bool {
	for _, allowed := range packetTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SectionStatus tracks one garment piece through its approval lifecycle.
type SectionStatus string

const (
	SectionStatusPendingMaterials SectionStatus = "PENDING_MATERIALS"
	SectionStatusInProduction     SectionStatus = "IN_PRODUCTION"
	SectionStatusPendingQA        SectionStatus = "PENDING_QA"
	SectionStatusApproved         SectionStatus = "APPROVED"
	SectionStatusRework           SectionStatus = "REWORK"
)

var sectionTransitions = map[SectionStatus][]SectionStatus{
	// Ready-stock packets skip the production floor entirely.
	SectionStatusPendingMaterials: {SectionStatusInProduction, SectionStatusPendingQA},
	SectionStatusInProduction:     {SectionStatusPendingQA},
	SectionStatusPendingQA:        {SectionStatusApproved, SectionStatusRework},
	// Rework either returns straight to the floor or, when the rejection
	// invalidated its materials, goes back through allocation and packeting.
	SectionStatusRework:   {SectionStatusInProduction, SectionStatusPendingMaterials},
	SectionStatusApproved: {SectionStatusRework},
}

// CanTransitionTo reports whether the section may move to the target status.
func (s SectionStatus) CanTransitionTo(next SectionStatus) bool {
	if next == SectionStatusPendingMaterials {
		// Scratch reset is legal from any state.
		return true
	}
	for _, allowed := range sectionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderStatus is the top-level order item status composed from the packet,
// section, and sales signals.
type OrderStatus string

const (
	OrderStatusPendingInventoryCheck   OrderStatus = "PENDING_INVENTORY_CHECK"
	OrderStatusReadyForPacketing       OrderStatus = "READY_FOR_PACKETING"
	OrderStatusPacketing               OrderStatus = "PACKETING"
	OrderStatusInProduction            OrderStatus = "IN_PRODUCTION"
	OrderStatusReadyForQA              OrderStatus = "READY_FOR_QA"
	OrderStatusReadyForVideo           OrderStatus = "READY_FOR_VIDEO"
	OrderStatusReadyForClientApproval  OrderStatus = "READY_FOR_CLIENT_APPROVAL"
	OrderStatusAwaitingClientApproval  OrderStatus = "AWAITING_CLIENT_APPROVAL"
	OrderStatusAlterationRequired      OrderStatus = "ALTERATION_REQUIRED"
	OrderStatusAwaitingAccountApproval OrderStatus = "AWAITING_ACCOUNT_APPROVAL"
	OrderStatusReadyForDispatch        OrderStatus = "READY_FOR_DISPATCH"
	OrderStatusDispatched              OrderStatus = "DISPATCHED"
	OrderStatusCancelledByClient       OrderStatus = "CANCELLED_BY_CLIENT"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingInventoryCheck: {OrderStatusReadyForPacketing},
	OrderStatusReadyForPacketing:     {OrderStatusPacketing},
	OrderStatusPacketing:             {OrderStatusInProduction, OrderStatusReadyForQA},
	OrderStatusInProduction:          {OrderStatusReadyForQA},
	OrderStatusReadyForQA:            {OrderStatusReadyForVideo, OrderStatusInProduction, OrderStatusPacketing},
	OrderStatusReadyForVideo:         {OrderStatusReadyForClientApproval},
	OrderStatusReadyForClientApproval: {
		OrderStatusAwaitingClientApproval,
	},
	OrderStatusAwaitingClientApproval: {
		OrderStatusAwaitingAccountApproval,
		OrderStatusAlterationRequired,
		OrderStatusPendingInventoryCheck,
		OrderStatusCancelledByClient,
	},
	OrderStatusAlterationRequired: {
		OrderStatusReadyForVideo,
		OrderStatusPacketing,
		OrderStatusInProduction,
	},
	OrderStatusAwaitingAccountApproval: {OrderStatusReadyForDispatch},
	OrderStatusReadyForDispatch:        {OrderStatusDispatched},
}

// CanTransitionTo reports whether the order item may move to the target status.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderStatusPendingInventoryCheck && s != OrderStatusCancelledByClient && s != OrderStatusDispatched {
		// Start-from-scratch routes any live order back to inventory check.
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the order item can no longer move.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDispatched || s == OrderStatusCancelledByClient
}
