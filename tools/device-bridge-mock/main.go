// A stand-in for the vendor device bridge. It acknowledges every ENROLL and
// DELETE command, except: device identifiers containing "reject" answer with
// a protocol rejection, and identifiers containing "silent" never answer.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

type commandEnvelope struct {
	MessageID        string `json:"messageId"`
	Command          string `json:"command"`
	PersonID         string `json:"personId"`
	PersonName       string `json:"personName"`
	DeviceIdentifier string `json:"deviceIdentifier"`
}

func commandHandler(w http.ResponseWriter, r *http.Request) {
	var envelope commandEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	log.Printf("Received %s for person %s on device %s", envelope.Command, envelope.PersonID, envelope.DeviceIdentifier)

	switch {
	case strings.Contains(envelope.DeviceIdentifier, "silent"):
		// Simulate a terminal that never acknowledges.
		time.Sleep(2 * time.Minute)
	case strings.Contains(envelope.DeviceIdentifier, "reject"):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprintf(w, `{"messageId":%q,"ack":false,"error":"person store is full"}`, envelope.MessageID)
	default:
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"messageId":%q,"ack":true}`, envelope.MessageID)
	}
}

func main() {
	http.HandleFunc("/commands", commandHandler)
	log.Println("Device bridge mock starting on port 8081...")
	log.Fatal(http.ListenAndServe(":8081", nil))
}
