package web

import (
	"net/url"
	"time"

	vm "github.com/ericfisherdev/accountvault/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/accountvault/internal/domain/model"
)

// toDeviceViewModels converts ordered device groups to device cards,
// preserving order.
func toDeviceViewModels(groups []model.DeviceGroup) []vm.DeviceViewModel {
	devices := make([]vm.DeviceViewModel, 0, len(groups))
	for _, g := range groups {
		apps := make([]vm.AppTileViewModel, 0, len(g.Members))
		for _, a := range g.Members {
			apps = append(apps, toAppTileViewModel(a))
		}

		devices = append(devices, vm.DeviceViewModel{
			Key:         g.Key,
			DisplayName: g.DisplayName,
			Kind:        string(g.Kind),
			Apps:        apps,
		})
	}
	return devices
}

func toAppTileViewModel(a model.Account) vm.AppTileViewModel {
	updated := ""
	if !a.UpdatedAt.IsZero() {
		updated = a.UpdatedAt.UTC().Format(time.DateOnly)
	}

	return vm.AppTileViewModel{
		ID:           a.ID,
		Platform:     a.Platform,
		Handle:       a.Handle,
		Username:     a.Username,
		NotesHTML:    RenderNotes(a.Notes),
		HasPassword:  a.Password != "",
		HasTwoFactor: a.TwoFactorSecret != "",
		UpdatedAt:    updated,
		DeletePath:   "/app/accounts/" + url.PathEscape(a.ID) + "/delete",
	}
}

// toUnplacedViewModels returns tiles for the accounts that appear in no
// group, in input order.
func toUnplacedViewModels(accounts []model.Account, groups []model.DeviceGroup) []vm.AppTileViewModel {
	placed := make(map[string]struct{})
	for _, g := range groups {
		for _, a := range g.Members {
			placed[a.ID] = struct{}{}
		}
	}

	var tiles []vm.AppTileViewModel
	for _, a := range accounts {
		if _, ok := placed[a.ID]; !ok {
			tiles = append(tiles, toAppTileViewModel(a))
		}
	}
	return tiles
}
