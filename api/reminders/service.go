package reminders

import (
	"CreditProcess/internal/reminders"
	"CreditProcess/internal/serviceiface"
)

type RemindersService struct {
	config map[string]interface{}
	store  *reminders.Store
}

func NewRemindersService(cfg map[string]interface{}, store *reminders.Store) serviceiface.Service {
	return &RemindersService{config: cfg, store: store}
}

func (s *RemindersService) Name() string {
	return "reminders"
}

func (s *RemindersService) Start() error {
	go StartRemindersService(s.store)
	return nil
}

func (s *RemindersService) Stop() error {
	return nil
}
