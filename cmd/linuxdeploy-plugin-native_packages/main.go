package main

import "github.com/oshokin/appdir-native-packages/cmd/linuxdeploy-plugin-native_packages/cmd"

func main() {
	cmd.Execute()
}
