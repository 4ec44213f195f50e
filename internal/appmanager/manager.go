package appmanager

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"CreditProcess/api"
	"CreditProcess/api/auth"
	"CreditProcess/api/credit"
	"CreditProcess/api/followup"
	"CreditProcess/api/records"
	remapi "CreditProcess/api/reminders"
	"CreditProcess/internal/jobs"
	"CreditProcess/internal/logger"
	"CreditProcess/internal/notification"
	"CreditProcess/internal/reminders"
	"CreditProcess/internal/resource"
	"CreditProcess/internal/serviceiface"
	"CreditProcess/internal/store"

	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

var db *sql.DB
var pgxPool *pgxpool.Pool

// Backends the service constructors close over. main wires these before
// AutoRegisterServices runs.
var (
	recordStore   store.RecordStore
	uploadLog     *store.UploadLog
	bulkStager    store.BulkStager
	reminderStore *reminders.Store
	mailer        *notification.Mailer
)

func SetDB(database *sql.DB) {
	db = database
}

func SetPgxPool(pool *pgxpool.Pool) {
	pgxPool = pool
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// GetPgxPool returns the pgx pool connection
func GetPgxPool() *pgxpool.Pool {
	return pgxPool
}

func SetRecordStore(s store.RecordStore)  { recordStore = s }
func SetUploadLog(l *store.UploadLog)     { uploadLog = l }
func SetBulkStager(s store.BulkStager)    { bulkStager = s }
func SetReminderStore(s *reminders.Store) { reminderStore = s }
func SetMailer(m *notification.Mailer) {
	mailer = m
	api.SetMailer(m)
}

var serviceConstructors = map[string]func(map[string]interface{}) serviceiface.Service{
	"logger": func(cfg map[string]interface{}) serviceiface.Service {
		return logger.NewLoggerService(cfg)
	},
	"resourcemanager": func(cfg map[string]interface{}) serviceiface.Service {
		return resource.NewResourceManagerService(cfg)
	},
	"auth": func(cfg map[string]interface{}) serviceiface.Service {
		// Auth reads its knobs from the environment; the yaml block
		// only toggles whether it runs.
		return auth.NewAuthService()
	},
	"credit": func(cfg map[string]interface{}) serviceiface.Service {
		return credit.NewCreditService(cfg, credit.Deps{
			Records: recordStore,
			Uploads: uploadLog,
			Stager:  bulkStager,
		})
	},
	"records": func(cfg map[string]interface{}) serviceiface.Service {
		return records.NewRecordsService(cfg, recordStore)
	},
	"followup": func(cfg map[string]interface{}) serviceiface.Service {
		return followup.NewFollowupService(cfg, recordStore, mailer)
	},
	"reminders": func(cfg map[string]interface{}) serviceiface.Service {
		return remapi.NewRemindersService(cfg, reminderStore)
	},
	"cron": func(cfg map[string]interface{}) serviceiface.Service {
		return jobs.NewCronService(cfg, recordStore, reminderStore, mailer)
	},
	"gateway": func(cfg map[string]interface{}) serviceiface.Service {
		return api.NewGatewayService(cfg)
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	// First pass: start all except Resourcemanager
	for _, service := range am.services {
		if service.Name() == "resourcemanager" {
			continue
		}
		fmt.Println("Starting service:", service.Name())
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}

	// Now start resourcemanager (after heartbeat is wired)
	for _, service := range am.services {
		if service.Name() == "resourcemanager" {
			fmt.Println("Starting service:", service.Name())
			if err := service.Start(); err != nil {
				return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
			}
		}
	}
	return nil
}

func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil {
			return fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}

	// sort by start_order
	sort.Slice(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) {
	for _, svc := range configs {
		if constructor, ok := serviceConstructors[svc.Name]; ok {
			service := constructor(svc.Config)
			am.RegisterService(service)
			if svc.Name == "auth" {
				if realAuthSvc, ok := service.(*auth.AuthService); ok {
					api.SetAuthService(realAuthSvc)
					auth.SetGlobalAuthService(realAuthSvc)
				}
			}
			if svc.Name == "resourcemanager" {
				if rm, ok := service.(*resource.ResourceManager); ok {
					registerResources(rm)
				}
			}
		}
	}

	for _, svc := range am.services {
		if l, ok := svc.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
			break
		}
	}
}

// registerResources hands the wired backends to the resource manager so
// the heartbeat reflects what main actually opened.
func registerResources(rm *resource.ResourceManager) {
	if db != nil {
		rm.AddResource("db", db)
	}
	if pgxPool != nil {
		rm.AddResource("pgxpool", pgxPool)
	}
	if recordStore != nil {
		rm.AddResource("recordstore", recordStore)
	}
	if uploadLog != nil {
		rm.AddResource("uploadlog", uploadLog)
	}
	if bulkStager != nil {
		rm.AddResource("bulkstager", bulkStager)
	}
	if reminderStore != nil {
		rm.AddResource("reminderdb", reminderStore)
	}
	if mailer != nil {
		rm.AddResource("mailer", mailer)
	}
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}
