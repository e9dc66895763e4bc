package notification

import (
	"context"
	"fmt"

	authdomain "inquiry-backend/internal/auth/domain"
	orderdomain "inquiry-backend/internal/order/domain"
	"inquiry-backend/pkg/fcm"

	"github.com/sirupsen/logrus"
)

// TokenStore is the slice of the device token repository the notifier needs.
type TokenStore interface {
	GetTokensByUserID(ctx context.Context, userID uint) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}

// PushSender delivers one notification to several devices and returns the
// tokens that were rejected.
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, n fcm.NotificationData) ([]string, error)
}

// Service pushes order events to the owner's registered devices.
type Service struct {
	tokens TokenStore
	sender PushSender
}

func NewService(tokens TokenStore, sender PushSender) *Service {
	return &Service{tokens: tokens, sender: sender}
}

// PaymentConfirmed tells the order owner that their payment went through.
func (s *Service) PaymentConfirmed(ctx context.Context, order *orderdomain.Order) {
	log := logrus.WithFields(logrus.Fields{
		"component": "notification",
		"order_id":  order.ID,
		"user_id":   order.UserID,
	})

	tokens, err := s.tokens.GetTokensByUserID(ctx, order.UserID)
	if err != nil {
		log.WithError(err).Error("failed to load device tokens")
		return
	}
	if len(tokens) == 0 {
		log.Debug("no device tokens, skipping push")
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	body := "您的订单已支付成功，我们将尽快处理"
	if order.Service != nil {
		body = fmt.Sprintf("%s 已支付成功，我们将尽快处理", order.Service.Name)
	}
	clickAction := fmt.Sprintf("/order/%d", order.ID)

	failed, err := s.sender.SendToDevices(ctx, tokenStrings, fcm.NotificationData{
		Title: fmt.Sprintf("订单 #%d 支付成功", order.ID),
		Body:  body,
		Data: map[string]string{
			"type":         "payment_confirmed",
			"orderId":      fmt.Sprintf("%d", order.ID),
			"click_action": clickAction,
		},
		ClickAction: clickAction,
	})
	if err != nil {
		log.WithError(err).Error("failed to send push notification")
		return
	}
	log.WithField("delivered", len(tokenStrings)-len(failed)).Info("payment push sent")

	for _, token := range failed {
		if err := s.tokens.DeleteToken(ctx, token); err != nil {
			log.WithError(err).Warn("failed to delete rejected device token")
		}
	}
}
