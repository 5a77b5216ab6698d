package state

// Resource names one of the three datasets held by the Store.
type Resource string

const (
	ResourceForestCarbon    Resource = "forest_carbon"
	ResourceClimateDisaster Resource = "climate_disaster"
	ResourceGeo             Resource = "geo"
)

// Resources lists every dataset in load order.
var Resources = []Resource{ResourceForestCarbon, ResourceClimateDisaster, ResourceGeo}

// Locations are the asset keys the loader reads.
type Locations struct {
	ForestCarbon    string
	ClimateDisaster string
	Geo             string
}

// DefaultLocations returns the bundled asset file names.
func DefaultLocations() Locations {
	return Locations{
		ForestCarbon:    "13_Forest_and_Carbon.csv",
		ClimateDisaster: "14_Climate-related_Disasters_Frequency.csv",
		Geo:             "ne_110m_admin_0_countries.geojson",
	}
}

// For returns the location configured for r.
func (l Locations) For(r Resource) string {
	switch r {
	case ResourceForestCarbon:
		return l.ForestCarbon
	case ResourceClimateDisaster:
		return l.ClimateDisaster
	case ResourceGeo:
		return l.Geo
	default:
		return ""
	}
}

// FieldStatus is the lifecycle of one dataset field.
type FieldStatus string

const (
	StatusEmpty     FieldStatus = "empty"
	StatusPopulated FieldStatus = "populated"
)
