package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Store --dir ../domain/mapping --output domain/mapping --outpkg mappingmock --filename store_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Provider --dir ../domain/record --output domain/record --outpkg recordmock --filename provider_mock.go
