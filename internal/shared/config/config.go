package config

import (
	"os"

	"gopkg.in/ini.v1"

	"proxykeeper/internal/shared/types"
)

// LoadIni 加载 keeper.ini 行为配置文件，并应用环境变量覆盖与默认值。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}
	overrideFromEnv(&cfg.StorageConf.BaseURL, "STORE_BASE_URL")
	overrideFromEnv(&cfg.ProviderConf.APIURL, "PROVIDER_API_URL")
	cfg.ApplyDefaults()
	return nil
}

func overrideFromEnv(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
