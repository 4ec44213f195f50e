package records

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"CreditProcess/api"
	"CreditProcess/internal/store"
)

func StartRecordsService(records store.RecordStore) {
	router := mux.NewRouter()
	router.Use(api.SessionMiddleware)

	router.HandleFunc("/records/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Records Service is active"))
	}).Methods("GET")

	router.Handle("/records/search", Search(records)).Methods("POST")
	router.Handle("/records/status", BulkStatus(records)).Methods("POST")
	router.Handle("/records/crsync", CRSync(records)).Methods("POST")
	router.Handle("/records/doctor/scan", DoctorScan(records)).Methods("POST")
	router.Handle("/records/doctor/purge", DoctorPurge(records)).Methods("POST")
	router.Handle("/records/{key}", GetRecord(records)).Methods("GET")
	router.Handle("/records/{key}", PatchRecord(records)).Methods("PATCH")
	router.Handle("/records/{key}", DeleteRecord(records)).Methods("DELETE")

	log.Println("Records Service started on :5143")
	err := http.ListenAndServe(":5143", router)
	if err != nil {
		log.Fatalf("Records Service failed: %v", err)
	}
}
