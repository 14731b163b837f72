package dto

// HistorialFilter narrows the session audit listing. Zero values mean
// "no filter". Dates are inclusive, formatted 2006-01-02.
type HistorialFilter struct {
	CajeroID string
	Desde    string
	Hasta    string
	Estado   string
	Page     int
	Limit    int
}

type HistorialResponse struct {
	Data  []SesionResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// DetalleSesionResponse is the full audit view: the session, its complete
// ordered ledger and every arqueo performed on it.
type DetalleSesionResponse struct {
	Sesion      SesionResponse       `json:"sesion"`
	Movimientos []MovimientoResponse `json:"movimientos"`
	Arqueos     []ArqueoResponse     `json:"arqueos"`
}
