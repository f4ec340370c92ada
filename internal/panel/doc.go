// Package panel implements the front panel around the control loop: the
// slide switches that pick PWM frequency and encoder responsiveness, the
// six seven-segment digits, the ten-LED duty bar and the mode banners.
//
// Switch layout:
//
//	SW4..SW0  PWM frequency  (00001=100 Hz ... 11111=7500 Hz, else 10 Hz)
//	SW8..SW5  encoder step   (0001=2 ... 1111=20, else 1)
//	SW9       alternate readout
package panel
