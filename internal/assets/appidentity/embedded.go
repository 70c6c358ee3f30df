package appidentityassets

import _ "embed"

// YAML is the application identity compiled into the binary. It is used when no
// `.fulmen/app.yaml` is found next to the working directory.
//
//go:embed app.yaml
var YAML []byte
