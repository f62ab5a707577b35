package sealevel

const (
	CUInvokeUnits                        = 1000
	CUCreateProgramAddressUnits          = 1500
	CUSystemProgramDefaultComputeUnits   = 150
	CUTokenProgramDefaultComputeUnits    = 2000
	CUMarketProgramDefaultComputeUnits   = 1500
)
