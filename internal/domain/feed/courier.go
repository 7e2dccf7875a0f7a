package feed

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownCourier = errors.New("feed: unknown delivery courier id")

// CourierID is a DELIVERY_ID value accepted by the marketplace
type CourierID string

var knownCouriers = map[CourierID]struct{}{}

func init() {
	for _, id := range []CourierID{
		"SLOVENSKA_POSTA", "CESKA_POSTA", "CESKA_POSTA_DOPORUCENA_ZASILKA", "CSAD_LOGISTIK_OSTRAVA",
		"DPD", "DHL", "DSV", "FOFR", "EXPRES_KURIER", "GEBRUDER_WEISS", "GEIS", "GLS", "HDS",
		"EXPRESS_ONE", "PPL", "SEEGMULLER", "TNT", "TOPTRANS", "UPS", "FEDEX", "RABEN_LOGISTICS",
		"ZASILKOVNA_NA_ADRESU", "SDS", "SPS", "123KURIER", "PACKETA_DOMOV", "PALET_EXPRESS",
		"WEDO_HOME", "RHENUS_LOGISTICS", "MESSENGER",
		// pickup points
		"SLOVENSKA_POSTA_NAPOSTU_DEPOTAPI", "ZASILKOVNA", "BALIKOVNA_DEPOTAPI", "PACKETA",
		"DPD_PICKUP", "WEDO_POINT", "BALIKOVO", "CESKA_POSTA_NAPOSTU", "PPL_PARCELSHOP",
		"GLS_PARCELSHOP", "DEPO", "ALZAPOINT",
		// parcel boxes
		"DPD_BOX", "Z_BOX", "WEDO_BOX", "BALIKOVNA_BOX", "BALIKO_BOX", "GLS_PARCELLOCKER", "ALZABOX",
		// no physical delivery
		"ONLINE", "VLASTNA_PREPRAVA", "VLASTNI_PREPRAVA",
	} {
		knownCouriers[id] = struct{}{}
	}
}

// IsValid checks if the courier id is in the known set
func (c CourierID) IsValid() bool {
	_, ok := knownCouriers[c]
	return ok
}

// String returns the string representation of CourierID
func (c CourierID) String() string {
	return string(c)
}

// ParseCourierID normalizes s and checks it against the known set
func ParseCourierID(s string) (CourierID, error) {
	id := CourierID(strings.ToUpper(strings.TrimSpace(s)))
	if !id.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCourier, s)
	}
	return id, nil
}

// KnownCouriers returns the known courier ids sorted
func KnownCouriers() []CourierID {
	ids := make([]CourierID, 0, len(knownCouriers))
	for id := range knownCouriers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
