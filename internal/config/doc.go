/*
Package config provides the environment-variable fallback the crld and
portd command trees use alongside their cobra flags. It holds no
defaults of its own — each binary's flag definition supplies the
fallback value, matching warren's cobra-without-viper convention.
*/
package config
