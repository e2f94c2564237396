package ioevents

import "context"

// ConfigurationStatus summarizes whether the eventing setup can reach I/O Events.
type ConfigurationStatus struct {
	Status                            string `json:"status"`
	TechnicalServiceAccountConfigured bool   `json:"technical_service_account_configured"`
	TechnicalServiceAccountCanConnect bool   `json:"technical_service_account_can_connect_to_io_events"`
	ProviderIDConfigured              string `json:"provider_id_configured"`
	ProviderIDValid                   bool   `json:"provider_id_valid"`
}

// CheckConfiguration probes the management API with the given provider id.
// keyConfigured reports whether a service account private key is available.
func (a *API) CheckConfiguration(ctx context.Context, keyConfigured bool, providerID string) ConfigurationStatus {
	status := ConfigurationStatus{
		Status:                            "error",
		TechnicalServiceAccountConfigured: keyConfigured,
		ProviderIDConfigured:              providerID,
	}
	if !keyConfigured {
		return status
	}

	if _, err := a.ListEventProviders(ctx); err != nil {
		a.logger.Warn("could not list event providers", "error", err)
		return status
	}
	status.TechnicalServiceAccountCanConnect = true

	if providerID == "" {
		return status
	}
	if _, err := a.ListRegisteredEventMetadata(ctx, providerID); err != nil {
		a.logger.Warn("could not list event metadata", "provider_id", providerID, "error", err)
		return status
	}
	status.ProviderIDValid = true
	status.Status = "ok"
	return status
}
