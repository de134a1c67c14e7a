package market

import "freshvault/internal/protocol"

// Op types.
const (
	OpAddCrop         = "ADD_CROP"
	OpUpdateCrop      = "UPDATE_CROP"
	OpDeleteCrop      = "DELETE_CROP"
	OpPromoteCrop     = "PROMOTE_CROP"
	OpCheckPromotions = "CHECK_PROMOTIONS"
	OpRequestQACheck  = "REQUEST_QA_CHECK"

	OpAddOffer          = "ADD_OFFER"
	OpWithdrawOffer     = "WITHDRAW_OFFER"
	OpUpdateOfferStatus = "UPDATE_OFFER_STATUS"
	OpAddOfferMessage   = "ADD_OFFER_MESSAGE"

	OpCreateStorageRequest  = "CREATE_STORAGE_REQUEST"
	OpCancelStorageRequest  = "CANCEL_STORAGE_REQUEST"
	OpAdvanceStorageRequest = "ADVANCE_STORAGE_REQUEST"
	OpExtendRental          = "EXTEND_RENTAL"
	OpRequestMaintenance    = "REQUEST_MAINTENANCE"

	OpAddBarterListing      = "ADD_BARTER_LISTING"
	OpRequestBarterService  = "REQUEST_BARTER_SERVICE"
	OpAcceptBarterService   = "ACCEPT_BARTER_SERVICE"
	OpCompleteBarterService = "COMPLETE_BARTER_SERVICE"
	OpRateBarterService     = "RATE_BARTER_SERVICE"
	OpRaiseDispute          = "RAISE_DISPUTE"
	OpResolveDispute        = "RESOLVE_DISPUTE"

	OpAcceptTask             = "ACCEPT_TASK"
	OpRejectTask             = "REJECT_TASK"
	OpCompleteTask           = "COMPLETE_TASK"
	OpApproveQACheck         = "APPROVE_QA_CHECK"
	OpSetQAVerified          = "SET_QA_VERIFIED"
	OpUpdateDeliveryStep     = "UPDATE_DELIVERY_STEP"
	OpUpdateMaintenanceStage = "UPDATE_MAINTENANCE_STAGE"
	OpSendTaskMessage        = "SEND_TASK_MESSAGE"
	OpMarkTaskRead           = "MARK_TASK_READ"
	OpEscalateTask           = "ESCALATE_TASK"
	OpStartDelivery          = "START_DELIVERY"
	OpUpdateDeliveryProgress = "UPDATE_DELIVERY_PROGRESS"
	OpStopDelivery           = "STOP_DELIVERY"

	OpMarkNotificationRead = "MARK_NOTIFICATION_READ"
	OpClearNotifications   = "CLEAR_NOTIFICATIONS"
)

type opHandler func(m *Market, s *Session, op protocol.OpMsg, nowTick uint64)

var opDispatch = map[string]opHandler{
	OpAddCrop:         handleAddCrop,
	OpUpdateCrop:      handleUpdateCrop,
	OpDeleteCrop:      handleDeleteCrop,
	OpPromoteCrop:     handlePromoteCrop,
	OpCheckPromotions: handleCheckPromotions,
	OpRequestQACheck:  handleRequestQACheck,

	OpAddOffer:          handleAddOffer,
	OpWithdrawOffer:     handleWithdrawOffer,
	OpUpdateOfferStatus: handleUpdateOfferStatus,
	OpAddOfferMessage:   handleAddOfferMessage,

	OpCreateStorageRequest:  handleCreateStorageRequest,
	OpCancelStorageRequest:  handleCancelStorageRequest,
	OpAdvanceStorageRequest: handleAdvanceStorageRequest,
	OpExtendRental:          handleExtendRental,
	OpRequestMaintenance:    handleRequestMaintenance,

	OpAddBarterListing:      handleAddBarterListing,
	OpRequestBarterService:  handleRequestBarterService,
	OpAcceptBarterService:   handleAcceptBarterService,
	OpCompleteBarterService: handleCompleteBarterService,
	OpRateBarterService:     handleRateBarterService,
	OpRaiseDispute:          handleRaiseDispute,
	OpResolveDispute:        handleResolveDispute,

	OpAcceptTask:             handleAcceptTask,
	OpRejectTask:             handleRejectTask,
	OpCompleteTask:           handleCompleteTask,
	OpApproveQACheck:         handleApproveQACheck,
	OpSetQAVerified:          handleSetQAVerified,
	OpUpdateDeliveryStep:     handleUpdateDeliveryStep,
	OpUpdateMaintenanceStage: handleUpdateMaintenanceStage,
	OpSendTaskMessage:        handleSendTaskMessage,
	OpMarkTaskRead:           handleMarkTaskRead,
	OpEscalateTask:           handleEscalateTask,
	OpStartDelivery:          handleStartDelivery,
	OpUpdateDeliveryProgress: handleUpdateDeliveryProgress,
	OpStopDelivery:           handleStopDelivery,

	OpMarkNotificationRead: handleMarkNotificationRead,
	OpClearNotifications:   handleClearNotifications,
}

func (m *Market) applyOp(s *Session, op protocol.OpMsg, nowTick uint64) {
	h := opDispatch[op.Op]
	if h == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "unknown op: "+op.Op))
		opsTotal.WithLabelValues(op.Op, "rejected").Inc()
		return
	}
	before := len(s.Events)
	h(m, s, op, nowTick)
	opsTotal.WithLabelValues(op.Op, opOutcome(s.Events[before:])).Inc()
}

func opOutcome(events []protocol.Event) string {
	for _, ev := range events {
		if ev["type"] != "ACTION_RESULT" {
			continue
		}
		if ok, _ := ev["ok"].(bool); ok {
			return "ok"
		}
		return "rejected"
	}
	return "ok"
}

func actionResult(tick uint64, ref string, ok bool, code string, msg string) protocol.Event {
	ev := protocol.Event{
		"t":    tick,
		"type": "ACTION_RESULT",
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		ev["code"] = code
	}
	if msg != "" {
		ev["message"] = msg
	}
	return ev
}

func okResult(tick uint64, ref string, kv ...any) protocol.Event {
	ev := actionResult(tick, ref, true, "", "")
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			ev[k] = kv[i+1]
		}
	}
	return ev
}
