package prompts

// DefaultTarget is the benchmark driven when none is given.
const DefaultTarget = "pts/nginx"

// Nginx returns the conversation the Phoronix Test Suite holds when running
// pts/nginx with result saving enabled.
func Nginx() Script {
	return New("pts-nginx", DefaultTarget).
		Expect(MustRegexp(`System Test Configuration`)).
		Expect(MustRegexp(`Connections:.*`)).Send("2").
		Expect(MustRegexp(`Would you like to save these test results \(Y/n\):`)).Send("y").
		Expect(MustRegexp(`Enter a name for the result file:`)).Send("{{.ResultName}}").
		Expect(MustRegexp(`Enter a unique name to describe this test run / configuration:`)).
		Send("Test run for {{.RunStamp}} on kernel {{.Kernel}}").
		Expect(MustRegexp(`New Description:`)).Send("Automated test run for {{.Target}} on this system.").
		Expect(MustRegexp(`Do you want to view the results in your web browser \(Y/n\):`)).Send("n").
		Expect(MustRegexp(`Would you like to upload the results to OpenBenchmarking\.org \(y/n\):`)).Send("n").
		Script()
}

// Builtin returns the bundled script for target, if any.
func Builtin(target string) (Script, bool) {
	if target == DefaultTarget {
		return Nginx(), true
	}
	return Script{}, false
}
