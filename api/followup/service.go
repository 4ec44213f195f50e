package followup

import (
	"CreditProcess/internal/notification"
	"CreditProcess/internal/serviceiface"
	"CreditProcess/internal/store"
)

type FollowupService struct {
	config  map[string]interface{}
	records store.RecordStore
	mailer  *notification.Mailer
}

func NewFollowupService(cfg map[string]interface{}, records store.RecordStore, mailer *notification.Mailer) serviceiface.Service {
	return &FollowupService{config: cfg, records: records, mailer: mailer}
}

func (s *FollowupService) Name() string {
	return "followup"
}

func (s *FollowupService) Start() error {
	go StartFollowupService(s.records, s.mailer)
	return nil
}

func (s *FollowupService) Stop() error {
	return nil
}
