package config

import (
	"github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
)

// read the config from the config file. Values in the form ${ENV_VAR} are taken from the environment.
func ReadConfig(configFile string) (configuration Configuration, err error) {
	config.WithOptions(config.ParseDefault, config.ParseEnv)
	config.AddDriver(yaml.Driver)
	err = config.LoadFiles(configFile)

	if err != nil {
		return
	}
	err = config.BindStruct("", &configuration)
	return
}
