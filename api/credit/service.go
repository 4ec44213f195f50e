package credit

import (
	"CreditProcess/internal/serviceiface"
	"CreditProcess/internal/store"
)

// Deps are the backends the credit service runs on. Stager is optional;
// when nil every submit takes the row-by-row path.
type Deps struct {
	Records store.RecordStore
	Uploads *store.UploadLog
	Stager  store.BulkStager
}

type CreditService struct {
	config map[string]interface{}
	deps   Deps
}

func NewCreditService(cfg map[string]interface{}, deps Deps) serviceiface.Service {
	return &CreditService{config: cfg, deps: deps}
}

func (s *CreditService) Name() string {
	return "credit"
}

func (s *CreditService) Start() error {
	go StartCreditService(s.deps)
	return nil
}

func (s *CreditService) Stop() error {
	return nil
}
