package service

import "solar_collector/internal/config"

type SettingsService struct {
	store *config.Store
}

func NewSettingsService(store *config.Store) *SettingsService {
	return &SettingsService{store: store}
}

// Settings returns the parameters in effect. The store is only written at
// boot, before the HTTP server starts.
func (s *SettingsService) Settings() SettingsView {
	if s.store == nil {
		return SettingsView{}
	}
	return SettingsView{
		Namespace: s.store.Namespace(),
		Params:    s.store.Params(),
		LastLoad:  s.store.LastLoad(),
	}
}
