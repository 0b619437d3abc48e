package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/common"
	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

var (
	ErrSenderNotFound    = errors.New("sender not found")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrNotSameHousehold  = errors.New("praise is limited to members of the same household")
)

// PraiseResult tells the caller whether the message reached the recipient.
type PraiseResult struct {
	Delivered bool
	Reason    string // set when not delivered
}

// Reasons a praise may not be delivered.
const (
	ReasonNotificationsDisabled = "recipient disabled notifications"
	ReasonNoChatLinked          = "recipient has no linked chat"
)

// PraiseService delivers encouragement messages between household members.
type PraiseService struct {
	users    UserDirectory
	praises  PraiseRepository
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewPraiseService creates a new praise service.
func NewPraiseService(users UserDirectory, praises PraiseRepository, notifier Notifier, logger *zap.Logger) *PraiseService {
	return &PraiseService{
		users:    users,
		praises:  praises,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// Send validates and delivers a praise message, then records it.
func (s *PraiseService) Send(ctx context.Context, req entities.PraiseRequest) (*PraiseResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sender, err := s.lookup(ctx, req.SenderID, ErrSenderNotFound)
	if err != nil {
		return nil, err
	}
	target, err := s.lookup(ctx, req.TargetUserID, ErrRecipientNotFound)
	if err != nil {
		return nil, err
	}

	if sender.HouseholdID == "" || sender.HouseholdID != target.HouseholdID {
		return nil, ErrNotSameHousehold
	}

	if !target.NotificationsEnabled {
		return &PraiseResult{Reason: ReasonNotificationsDisabled}, nil
	}
	if target.ChatID == 0 {
		return &PraiseResult{Reason: ReasonNoChatLinked}, nil
	}

	err = s.notifier.Notify(ctx, entities.NotificationRequest{
		UserID: target.ID,
		Kind:   entities.NotificationPraise,
		Payload: entities.PraisePayload{
			SenderName: sender.Name,
			Message:    req.Message,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("send praise: %w", err)
	}

	praise := &entities.Praise{
		ID:           uuid.NewString(),
		HouseholdID:  sender.HouseholdID,
		SenderID:     sender.ID,
		SenderName:   sender.Name,
		TargetUserID: target.ID,
		TargetName:   target.Name,
		Message:      req.Message,
		CreatedAt:    s.now(),
	}
	if err := s.praises.SavePraise(ctx, praise); err != nil {
		// The message is already delivered; losing the statistics row is not fatal.
		s.logger.Error("failed to record praise",
			zap.String("sender_id", sender.ID),
			zap.String("target_user_id", target.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("praise message sent",
		zap.String("sender_id", sender.ID),
		zap.String("target_user_id", target.ID),
	)

	return &PraiseResult{Delivered: true}, nil
}

func (s *PraiseService) lookup(ctx context.Context, userID string, notFound error) (*entities.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return u, nil
}
