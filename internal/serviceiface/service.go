package serviceiface

// Service is anything the app manager can start and stop.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
