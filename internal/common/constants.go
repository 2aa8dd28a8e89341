package common

import "time"

// Source columns of an uploaded customer dataset
const (
	ColCustomerID     = "ID_Cliente"
	ColCustomerName   = "Apellido_Nombre"
	ColAge            = "Edad"
	ColSex            = "Sexo"
	ColMonth1         = "Frec_Mes1"
	ColMonth2         = "Frec_Mes2"
	ColMonth3         = "Frec_Mes3"
	ColMonth4         = "Frec_Mes4"
	ColMonth5         = "Frec_Mes5"
	ColVisitVariation = "Variación_Frecuencia_Visitas"
	ColVariationPct   = "Variación_porcentual (%)"
	ColZone           = "Zona_Recidencial"
	ColPaymentMethod  = "Metodo_Pago"
	ColSatisfaction   = "Satisfacción_Servicio"
)

// Derived columns of the logistic regression feature set
const (
	ColTrend      = "Tendencia_1_5"
	ColVolatility = "Volatilidad_1_5"
	ColM5VsPrior  = "Pct_M5_vs_Prom_M1_4"
)

// MonthColumns are the five monthly visit-frequency counters, oldest first.
var MonthColumns = []string{ColMonth1, ColMonth2, ColMonth3, ColMonth4, ColMonth5}

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvModelStoreDir  = "MODEL_STORE_DIR"
	EnvDataPath       = "DATA_PATH"
	EnvDefaultModel   = "DEFAULT_MODEL"
	EnvServerPort     = "SERVER_PORT"
	EnvChurnThreshold = "CHURN_THRESHOLD"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRecords     = "MAX_RECORDS"
	EnvLogLevel       = "LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultModelStoreDir  = "models"
	DefaultModel          = "rf"
	DefaultServerPort     = 8080
	DefaultChurnThreshold = 0.5
	DefaultMaxRecords     = 100000
	DefaultLogLevel       = "info"
	DefaultRequestTimeout = 30 * time.Second
)

// Validation constants
const (
	MinServerPort  = 1024
	MaxServerPort  = 65535
	MaxRecordLimit = 5000000
)

// Epsilon guards the month-5 ratio against a zero prior-month average.
const Epsilon = 1e-9
