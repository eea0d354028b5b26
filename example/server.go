package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	flagvault "github.com/flagvault/flagvault-go"
	"github.com/flagvault/flagvault-go/flagengine/flags"
)

func main() {
	client := flagvault.New()
	fa := client.Factory()

	_, err := client.CreateFlag("secret_button", "Shows the secret button", false,
		flags.NewTenantRule(fa, "acme"),
		flags.NewPercentageRule(fa, 25),
	)
	if err != nil {
		log.Fatal(err)
	}

	http.HandleFunc("/flags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(client.ListFlags(flagvault.ListOptions{
			Search: r.URL.Query().Get("search"),
		}))
	})

	http.HandleFunc("/evaluate", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result, err := client.EvaluateByName(q.Get("flag"), flags.EvaluationContext{
			UserID:   q.Get("user"),
			TenantID: q.Get("tenant"),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	})

	fmt.Printf("Starting server at port 5000\n")
	if err := http.ListenAndServe(":5000", nil); err != nil {
		log.Fatal(err)
	}
}
