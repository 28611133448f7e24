package repository

import "access_service/internal/database/mongo"

type Repositories struct {
	UserInfoRepository      *UserInfoRepository
	AccessRequestRepository *AccessRequestRepository
	ProjectConfigRepository *ProjectConfigRepository
	HierarchyRepository     *HierarchyRepository
	AutoApproveRepository   *AutoApproveRepository
	RedisRepository         *RedisRepo
}

var Repositories_instance = &Repositories{
	UserInfoRepository:      NewUserInfoRepository(mongo.Mongo_Database),
	AccessRequestRepository: NewAccessRequestRepository(mongo.Mongo_Database),
	ProjectConfigRepository: NewProjectConfigRepository(mongo.Mongo_Database),
	HierarchyRepository:     NewHierarchyRepository(mongo.Mongo_Database),
	AutoApproveRepository:   NewAutoApproveRepository(mongo.Mongo_Database),
	RedisRepository:         NewRedisRepo(),
}
