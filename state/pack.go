package state

// FlowStateSize is the number of float64 values Pack writes for one state.
func FlowStateSize(l Layout) int {
	return 7 + 3 + 3 + 1 + l.NSpecies() + 2*l.NModes() + l.NTurb()
}

// Pack serializes the flow state into buf, returning the slice past the
// written values.
func Pack(fs *FlowState, buf []float64) []float64 {
	buf[0], buf[1], buf[2], buf[3], buf[4], buf[5], buf[6] =
		fs.Rho, fs.P, fs.T, fs.U, fs.A, fs.Mu, fs.K
	buf = buf[7:]
	buf[0], buf[1], buf[2] = fs.Vel[0], fs.Vel[1], fs.Vel[2]
	buf[3], buf[4], buf[5] = fs.B[0], fs.B[1], fs.B[2]
	buf[6] = fs.Psi
	buf = buf[7:]
	n := copy(buf, fs.MassF)
	buf = buf[n:]
	n = copy(buf, fs.TModes)
	buf = buf[n:]
	n = copy(buf, fs.UModes)
	buf = buf[n:]
	n = copy(buf, fs.Turb)
	return buf[n:]
}

// Unpack is the inverse of Pack.
func Unpack(buf []float64, fs *FlowState) []float64 {
	fs.Rho, fs.P, fs.T, fs.U, fs.A, fs.Mu, fs.K =
		buf[0], buf[1], buf[2], buf[3], buf[4], buf[5], buf[6]
	buf = buf[7:]
	fs.Vel[0], fs.Vel[1], fs.Vel[2] = buf[0], buf[1], buf[2]
	fs.B[0], fs.B[1], fs.B[2] = buf[3], buf[4], buf[5]
	fs.Psi = buf[6]
	buf = buf[7:]
	n := copy(fs.MassF, buf)
	buf = buf[n:]
	n = copy(fs.TModes, buf)
	buf = buf[n:]
	n = copy(fs.UModes, buf)
	buf = buf[n:]
	n = copy(fs.Turb, buf)
	return buf[n:]
}
