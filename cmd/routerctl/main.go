// routerctl inspects a taskrouter configuration offline and queries a running
// gateway's health service.
//
// Usage:
//
//	routerctl validate --config-dir configs
//	routerctl classify "write a python function that parses csv"
//	routerctl candidates CODEGEN --vision --max-cost 0.01
//	routerctl health --addr localhost:9091 --provider claude
package main

func main() {
	Execute()
}
