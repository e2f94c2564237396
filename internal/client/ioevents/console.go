package ioevents

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// ConsoleConfiguration is the workspace configuration exported from the
// Adobe Developer Console.
type ConsoleConfiguration struct {
	Project Project `json:"project"`
}

// Project is the console project holding the workspace.
type Project struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Title        string       `json:"title"`
	Organization Organization `json:"org"`
	Workspace    Workspace    `json:"workspace"`
}

// Organization is the IMS organization owning the project.
type Organization struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IMSOrgID string `json:"ims_org_id"`
}

// Workspace is the console workspace.
type Workspace struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Title     string           `json:"title"`
	ActionURL string           `json:"action_url"`
	AppURL    string           `json:"app_url"`
	Details   WorkspaceDetails `json:"details"`
}

// WorkspaceDetails lists the workspace credentials.
type WorkspaceDetails struct {
	Credentials []Credential `json:"credentials"`
}

// Credential is one workspace credential. Only service account (JWT)
// credentials are used.
type Credential struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IntegrationType string `json:"integration_type"`
	JWT             *JWT   `json:"jwt,omitempty"`
}

// JWT holds the service account details of a credential.
type JWT struct {
	ClientID              string   `json:"client_id"`
	ClientSecret          string   `json:"client_secret"`
	TechnicalAccountEmail string   `json:"technical_account_email"`
	TechnicalAccountID    string   `json:"technical_account_id"`
	MetaScopes            []string `json:"meta_scopes"`
}

// ParseConsoleConfiguration decodes a workspace configuration document.
// Credentials without JWT details are dropped.
func ParseConsoleConfiguration(data []byte) (*ConsoleConfiguration, error) {
	var cfg ConsoleConfiguration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: could not fetch Adobe I/O Workspace Configuration: %v", events.ErrInvalidConfiguration, err)
	}

	creds := cfg.Project.Workspace.Details.Credentials[:0]
	for _, c := range cfg.Project.Workspace.Details.Credentials {
		if c.JWT != nil {
			creds = append(creds, c)
		}
	}
	cfg.Project.Workspace.Details.Credentials = creds

	return &cfg, nil
}

// FirstCredential returns the first service account credential.
func (c *ConsoleConfiguration) FirstCredential() (*Credential, error) {
	creds := c.Project.Workspace.Details.Credentials
	if len(creds) == 0 || creds[0].JWT == nil {
		return nil, fmt.Errorf("%w: no service account credentials in workspace configuration", events.ErrInvalidConfiguration)
	}
	return &creds[0], nil
}

// ConsoleFile loads the workspace configuration from a file once.
type ConsoleFile struct {
	path string

	mu  sync.Mutex
	cfg *ConsoleConfiguration
}

// NewConsoleFile creates a ConsoleFile for path.
func NewConsoleFile(path string) *ConsoleFile {
	return &ConsoleFile{path: path}
}

// Configuration returns the parsed workspace configuration.
func (f *ConsoleFile) Configuration() (*ConsoleConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cfg != nil {
		return f.cfg, nil
	}
	if f.path == "" {
		return nil, fmt.Errorf("%w: could not find Adobe I/O Workspace Configuration information", events.ErrNotFound)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read Adobe I/O Workspace Configuration: %v", events.ErrNotFound, err)
	}

	cfg, err := ParseConsoleConfiguration(data)
	if err != nil {
		return nil, err
	}
	f.cfg = cfg
	return cfg, nil
}

// StaticConsole serves an already parsed configuration.
type StaticConsole struct {
	Config *ConsoleConfiguration
}

// Configuration implements ConsoleSource.
func (s StaticConsole) Configuration() (*ConsoleConfiguration, error) {
	if s.Config == nil {
		return nil, fmt.Errorf("%w: could not find Adobe I/O Workspace Configuration information", events.ErrNotFound)
	}
	return s.Config, nil
}
