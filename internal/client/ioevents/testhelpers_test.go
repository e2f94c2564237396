package ioevents

import (
	"context"
	"io"
	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockTokenSource struct {
	AccessTokenFn func(ctx context.Context) (string, error)
}

func (m *mockTokenSource) AccessToken(ctx context.Context) (string, error) {
	if m.AccessTokenFn != nil {
		return m.AccessTokenFn(ctx)
	}
	return "test-token", nil
}

func testConsole() StaticConsole {
	return StaticConsole{Config: &ConsoleConfiguration{
		Project: Project{
			ID:           "proj-1",
			Organization: Organization{ID: "org-1", IMSOrgID: "ims-org@AdobeOrg"},
			Workspace: Workspace{
				ID: "ws-1",
				Details: WorkspaceDetails{Credentials: []Credential{{
					ID:  "cred-1",
					JWT: &JWT{ClientID: "client-1", ClientSecret: "secret", TechnicalAccountID: "tech@techacct.adobe.com"},
				}}},
			},
		},
	}}
}

const consoleJSON = `{
  "project": {
    "id": "proj-1",
    "name": "commerce",
    "org": {"id": "org-1", "name": "Org", "ims_org_id": "ims-org@AdobeOrg"},
    "workspace": {
      "id": "ws-1",
      "name": "Stage",
      "details": {
        "credentials": [
          {"id": "oauth", "name": "oauth", "integration_type": "oauth_webapp"},
          {"id": "cred-1", "name": "service", "integration_type": "service",
           "jwt": {"client_id": "client-1", "client_secret": "secret",
                   "technical_account_id": "tech@techacct.adobe.com",
                   "meta_scopes": ["ent_adobeio_sdk"]}}
        ]
      }
    }
  }
}`
