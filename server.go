package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jinzhu/copier"
	log "github.com/sirupsen/logrus"

	"github.com/uc-cdis/nf-rangeland/params"
	"github.com/uc-cdis/nf-rangeland/runerr"
)

// this file contains the http server that exposes the declared parameter surface
// so the platform's form renderer can draw it and preview the nextflow flags

// largest accepted POST /flags body
const maxFlagsBody = 64 << 10

// ParameterView is a descriptor as the form renderer sees it
type ParameterView struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Default     interface{} `json:"default,omitempty"`
	Description string      `json:"description"`
	Section     string      `json:"section,omitempty"`
	Required    bool        `json:"required"`
}

// FlagsResponse is the body returned by POST /flags
type FlagsResponse struct {
	Flags   []string `json:"flags"`
	Command string   `json:"command"`
}

type Server struct {
	registry *params.Registry
}

func newServer(reg *params.Registry) *Server {
	return &Server{registry: reg}
}

func (server *Server) makeRouter(out io.Writer) http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/parameters", server.handleParameters).Methods("GET")
	router.HandleFunc("/flags", server.handleFlags).Methods("POST")
	router.HandleFunc("/_status", server.handleHealthcheck).Methods("GET")
	return handlers.LoggingHandler(out, router)
}

// runServer blocks serving the parameter surface on port
func runServer(reg *params.Registry, port uint) error {
	server := newServer(reg)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      server.makeRouter(os.Stdout),
	}
	log.WithField("addr", httpServer.Addr).Info("serving nf-core/rangeland parameters")
	return httpServer.ListenAndServe()
}

// parameterViews flattens the registry sections into form views, in declaration order
func parameterViews(reg *params.Registry) ([]ParameterView, error) {
	views := []ParameterView{}
	for _, section := range reg.Sections() {
		for _, d := range section.Descriptors {
			view := ParameterView{}
			if err := copier.Copy(&view, &d); err != nil {
				return nil, err
			}
			view.Section = section.Title
			view.Required = d.Type.Required()
			views = append(views, view)
		}
	}
	return views, nil
}

func (server *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	views, err := parameterViews(server.registry)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleFlags translates a runtime parameter set into nextflow flags.
// The body is a JSON object of parameter name to value.
func (server *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxFlagsBody))
	if err != nil {
		http.Error(w, fmt.Sprintf("error reading request body: %v", err), http.StatusRequestEntityTooLarge)
		return
	}
	raw, err := params.DecodeValues(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("fail to parse json %v", err), http.StatusBadRequest)
		return
	}
	values, err := params.NewValues(server.registry, raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	flags, err := params.Flags(values)
	if err != nil {
		status := http.StatusInternalServerError
		if runerr.Is(err, runerr.KindConfig) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, &FlagsResponse{
		Flags:   flags,
		Command: strings.Join(flags, " "),
	})
}

func (server *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "Healthy")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
