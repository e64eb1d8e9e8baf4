package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

var ConfigStore atomic.Value

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"FINCORE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"FINCORE_REDIS_DNS"`
}

// LedgerConfig carries the knobs the engines are constructed with. They used
// to be read from the environment at call time in the system this replaces;
// resolving them once at startup keeps tests deterministic and removes the
// hidden global state.
type LedgerConfig struct {
	ConversionFeePercent  float64 `json:"conversion_fee_percent" envconfig:"FINCORE_CONVERSION_FEE_PERCENT"`
	DefaultCommissionRate float64 `json:"default_commission_rate" envconfig:"FINCORE_DEFAULT_COMMISSION_RATE"`
	LockTimeoutSec        int     `json:"lock_timeout_sec" envconfig:"FINCORE_LOCK_TIMEOUT_SEC"`
	LockWaitSec           int     `json:"lock_wait_sec" envconfig:"FINCORE_LOCK_WAIT_SEC"`
}

type GatewayConfig struct {
	Url           string `json:"url" envconfig:"FINCORE_GATEWAY_URL"`
	Authorization string `json:"authorization" envconfig:"FINCORE_GATEWAY_AUTHORIZATION"`
	TimeoutSec    int    `json:"timeout_sec" envconfig:"FINCORE_GATEWAY_TIMEOUT_SEC"`
}

type RatesConfig struct {
	Url        string `json:"url" envconfig:"FINCORE_RATES_URL"`
	TimeoutSec int    `json:"timeout_sec" envconfig:"FINCORE_RATES_TIMEOUT_SEC"`
}

type Configuration struct {
	ProjectName string           `json:"project_name" envconfig:"FINCORE_PROJECT_NAME"`
	DataSource  DataSourceConfig `json:"data_source"`
	Redis       RedisConfig      `json:"redis"`
	Ledger      LedgerConfig     `json:"ledger"`
	Gateway     GatewayConfig    `json:"gateway"`
	Rates       RatesConfig      `json:"rates"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("fincore", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called fincore.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Fincore"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Ledger.ConversionFeePercent < 0 || cnf.Ledger.ConversionFeePercent > 100 {
		return errors.New("conversion fee percent must be between 0 and 100")
	}
	if cnf.Ledger.DefaultCommissionRate < 0 || cnf.Ledger.DefaultCommissionRate > 100 {
		return errors.New("default commission rate must be between 0 and 100")
	}

	if cnf.Ledger.LockTimeoutSec == 0 {
		cnf.Ledger.LockTimeoutSec = 30
	}
	if cnf.Ledger.LockWaitSec == 0 {
		cnf.Ledger.LockWaitSec = 10
	}
	if cnf.Gateway.TimeoutSec == 0 {
		cnf.Gateway.TimeoutSec = 15
	}
	if cnf.Rates.TimeoutSec == 0 {
		cnf.Rates.TimeoutSec = 10
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if mockConfig.Ledger.LockTimeoutSec == 0 {
		mockConfig.Ledger.LockTimeoutSec = 30
	}
	if mockConfig.Ledger.LockWaitSec == 0 {
		mockConfig.Ledger.LockWaitSec = 10
	}
	if mockConfig.Gateway.TimeoutSec == 0 {
		mockConfig.Gateway.TimeoutSec = 15
	}
	if mockConfig.Rates.TimeoutSec == 0 {
		mockConfig.Rates.TimeoutSec = 10
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
