package domain

// MenuProduct is a buffet product of a provider menu.
type MenuProduct struct {
	ProductID      string      `json:"product_id"`
	Name           string      `json:"name"`
	ProviderID     string      `json:"provider_id"`
	Price          float64     `json:"price"`
	ProductBarcode *string     `json:"product_barcode"`
	SchoolID       string      `json:"school_id"`
	SchoolName     string      `json:"school_name"`
	UnitName       string      `json:"unit_name"`
	ServiceType    ServiceType `json:"service_type"`
}

// MenuEntry is a dining room menu position.
type MenuEntry struct {
	MenuID       string      `json:"menu_id"`
	Name         string      `json:"name"`
	ProviderID   string      `json:"provider_id"`
	Price        float64     `json:"price"`
	HolidayPrice float64     `json:"holiday_price"`
	SchoolID     string      `json:"school_id"`
	SchoolName   string      `json:"school_name"`
	Subsidy      float64     `json:"subsidy"`
	SubsidyTitle *string     `json:"subsidy_title"`
	ServiceType  ServiceType `json:"service_type"`
}

// Menu is a get_menu snapshot. Products is filled for buffet, Menu for dining room.
type Menu struct {
	Result   int           `json:"result"`
	Comment  string        `json:"comment"`
	Products []MenuProduct `json:"products"`
	Menu     []MenuEntry   `json:"menu"`
}

// FindProduct looks a buffet product up by exact product_id.
func (m *Menu) FindProduct(productID string) (MenuProduct, bool) {
	for _, p := range m.Products {
		if p.ProductID == productID {
			return p, true
		}
	}
	return MenuProduct{}, false
}
