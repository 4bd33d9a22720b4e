package billing

import _ "embed"

//go:embed assets/water_logo.png
var waterLogo []byte

//go:embed assets/electricity_logo.png
var electricityLogo []byte

var waterCompany = CompanyInfo{
	Name:    "Pure Water Utilities Inc.",
	Address: "123 Water Lane, Hydro City, HC 12345",
	Phone:   "(555) 123-4567",
	Email:   "support@purewaterutilities.com",
	Website: "www.purewaterutilities.com",
	Logo:    waterLogo,
}

var electricityCompany = CompanyInfo{
	Name:    "PowerGrid Electricity Services",
	Address: "456 Electric Avenue, Power City, PC 67890",
	Phone:   "(555) 987-6543",
	Email:   "support@powergridservices.com",
	Website: "www.powergridservices.com",
	Logo:    electricityLogo,
}

// CompanyFor returns the static issuing company for a utility type.
func CompanyFor(t UtilityType) CompanyInfo {
	if t == Electricity {
		return electricityCompany
	}
	return waterCompany
}
