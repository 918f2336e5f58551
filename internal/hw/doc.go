// Package hw binds the loop's Sensor and Actuator to real devices: an
// ADS1115 on I2C or a serial-line ADC for the slide potentiometer, and a
// hobby servo driven by hardware PWM on a GPIO pin. Devices are opened with
// exponential backoff; per-tick reads and writes never retry.
package hw
