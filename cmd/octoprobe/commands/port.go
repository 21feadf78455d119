// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.bug.st/serial"

	"github.com/immunIT/octoprobe/cmd/octoprobe/directory"
)

func SetPortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "set-port",
		Short:        "Select the serial port of your Octowire",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return err
			}

			cfg, err := GetConfig()
			if err != nil {
				return err
			}

			_, err = GetPort(cfg, all, true)
			return err
		},
	}

	cmd.Flags().Bool("all", false, "if set, will show all available ports")
	return cmd
}

func PortsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ports",
		Short:        "List the available serial ports",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return err
			}

			ports, err := serial.GetPortsList()
			if err != nil {
				return err
			}
			if !all {
				ports = filterPorts(ports)
			}

			outputter, err := parseOutputFlag(cmd)
			if err != nil {
				return err
			}
			if outputter != nil {
				return outputter.Encode(portList(ports))
			}

			for _, p := range ports {
				fmt.Println(p)
			}
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "if set, will show all available ports")
	cmd.Flags().StringP("output", "o", "short", "set output format to 'json', 'yaml' or 'short'")
	cmd.Flags().Bool("list", true, "output as a machine readable list")
	cmd.Flags().MarkHidden("list")
	return cmd
}

type portList []string

func (p portList) Elements() []Short {
	var res []Short
	for _, port := range p {
		res = append(res, portName(port))
	}
	return res
}

type portName string

func (p portName) Short() string {
	return string(p)
}

func PortExists(port string) (bool, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return false, err
	}
	for _, p := range ports {
		if p == port {
			return true, nil
		}
	}
	return false, nil
}

// ConfiguredPort returns the stored Octowire port, if any.
func ConfiguredPort() string {
	if port, ok := lookupPortEnv(); ok {
		return port
	}
	cfg, err := GetConfig()
	if err != nil {
		return ""
	}
	return cfg.GetString("port")
}

// CheckPort verifies that port still exists, falling back to an interactive
// selection when it does not.
func CheckPort(port string) (string, error) {
	exists, err := PortExists(port)
	if err != nil {
		return "", err
	}
	if exists {
		return port, nil
	}

	cfg, err := GetConfig()
	if err != nil {
		return "", err
	}

	return GetPort(cfg, false, true)
}

// GetPort returns the stored port, or lets the user pick one and persists
// the choice. With reselect set the stored value is ignored.
func GetPort(cfg *viper.Viper, all bool, reselect bool) (string, error) {
	if !reselect && cfg.IsSet("port") {
		port := cfg.GetString("port")
		if exists, err := PortExists(port); err == nil && exists {
			return port, nil
		}
	}

	port, err := pickPort(all)
	if err != nil {
		return "", err
	}
	cfg.Set("port", port)
	if err := directory.WriteConfig(cfg); err != nil {
		return "", err
	}
	return port, nil
}

func pickPort(all bool) (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", err
	}
	if !all {
		ports = filterPorts(ports)
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports detected. Is the Octowire plugged in?")
	}

	prompt := promptui.Select{
		Label:     "Choose what serial port you want to use",
		Items:     ports,
		Templates: &promptui.SelectTemplates{},
	}

	i, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("you didn't select anything")
	}

	return ports[i], nil
}

func filterPorts(ports []string) []string {
	switch runtime.GOOS {
	case "darwin":
		return darwinFilterPaths(ports)
	case "linux":
		return linuxFilterPaths(ports)
	default:
		return ports
	}
}

func darwinFilterPaths(paths []string) []string {
	existing := map[string]struct{}{}
	for _, p := range paths {
		existing[p] = struct{}{}
	}
	var res []string
	for _, path := range paths {
		if strings.HasPrefix(path, "/dev/cu") && !strings.Contains(path, "Bluetooth") {
			res = append(res, path)
		} else if strings.HasPrefix(path, "/dev/tty") && !strings.Contains(path, "Bluetooth") {
			candidate := "/dev/cu" + strings.TrimPrefix(path, "/dev/tty")
			if _, exists := existing[candidate]; !exists {
				res = append(res, path)
			}
		}
	}
	return res
}

func linuxFilterPaths(paths []string) []string {
	res := []string(nil)
	for _, path := range paths {
		if strings.Contains(path, "tty") {
			if strings.Contains(path, "USB") || strings.Contains(path, "ACM") {
				res = append(res, path)
			}
		}
	}
	return res
}
