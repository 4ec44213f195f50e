package credit

import (
	"log"
	"net/http"

	"CreditProcess/api"
)

func StartCreditService(deps Deps) {
	mux := http.NewServeMux()
	mux.HandleFunc("/credit/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Credit Service is active"))
	})

	mux.Handle("/credit/template/preview", api.SessionMiddleware(TemplatePreview(deps.Records)))
	mux.Handle("/credit/submit", api.SessionMiddleware(SubmitBatch(deps)))
	mux.Handle("/credit/submit/one", api.SessionMiddleware(SubmitOne(deps)))
	mux.Handle("/credit/check", api.SessionMiddleware(CheckPairs(deps.Records)))
	mux.Handle("/credit/uploads", api.SessionMiddleware(ListUploads(deps.Uploads)))
	mux.Handle("/credit/export/backup", api.SessionMiddleware(ExportBackup(deps.Records)))

	log.Println("Credit Service started on :6143")
	err := http.ListenAndServe(":6143", mux)
	if err != nil {
		log.Fatalf("Credit Service failed: %v", err)
	}
}
