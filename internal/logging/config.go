package logging

type Config struct {
	Level       string `envconfig:"SPINDEX_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"SPINDEX_LOG_DEVELOPMENT" default:"false"`
}
