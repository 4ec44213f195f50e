package records

import (
	"CreditProcess/internal/serviceiface"
	"CreditProcess/internal/store"
)

type RecordsService struct {
	config  map[string]interface{}
	records store.RecordStore
}

func NewRecordsService(cfg map[string]interface{}, records store.RecordStore) serviceiface.Service {
	return &RecordsService{config: cfg, records: records}
}

func (s *RecordsService) Name() string {
	return "records"
}

func (s *RecordsService) Start() error {
	go StartRecordsService(s.records)
	return nil
}

func (s *RecordsService) Stop() error {
	return nil
}
